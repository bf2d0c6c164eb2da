package battle

import (
	"fmt"
	"slices"
	"strings"

	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/randx"
)

// suggestion is a candidate problem and the set of users voting for it.
type suggestion struct {
	id         string
	url        string
	slug       string
	title      string
	difficulty Difficulty
	proposer   Identity
	voters     map[string]struct{}
}

func (s *suggestion) view() SuggestionView {
	votes := make([]string, 0, len(s.voters))
	for id := range s.voters {
		votes = append(votes, id)
	}
	slices.Sort(votes)

	return SuggestionView{
		ID:                  s.id,
		URL:                 s.url,
		ProblemSlug:         s.slug,
		ProblemTitle:        s.title,
		Difficulty:          s.difficulty,
		SubmittedBy:         s.proposer.UserID,
		SubmittedByUsername: s.proposer.Username,
		Votes:               votes,
		VoteCount:           len(votes),
	}
}

// Suggestions returns every suggestion in submission order.
func (r *Room) Suggestions() []SuggestionView {
	out := make([]SuggestionView, 0, len(r.suggestionOrder))
	for _, id := range r.suggestionOrder {
		out = append(out, r.suggestions[id].view())
	}
	return out
}

// Suggest records a problem proposal with the proposer's ballot already cast for it.
// Casting that ballot withdraws any earlier ballot of the proposer.
func (r *Room) Suggest(proposer Identity, in SuggestionInput) (SuggestionView, *errs.CustomError) {
	if r.ProblemLocked {
		return SuggestionView{}, errs.NewError(errs.ErrProblemAlreadyLocked)
	}

	if r.Status != StatusWaiting {
		return SuggestionView{}, errs.NewError(errs.ErrBattleAlreadyStarted)
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return SuggestionView{}, errs.NewError(errs.ErrInvalidParams)
	}

	for _, s := range r.suggestions {
		if s.slug == slug {
			return SuggestionView{}, errs.NewError(errs.ErrProblemAlreadySuggested)
		}
	}

	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = DifficultyUnknown
	}

	s := &suggestion{
		id:         randx.SuggestionID(),
		url:        in.URL,
		slug:       slug,
		title:      in.Title,
		difficulty: difficulty,
		proposer:   proposer,
		voters:     make(map[string]struct{}),
	}

	r.withdrawBallot(proposer.UserID)
	s.voters[proposer.UserID] = struct{}{}

	r.suggestions[s.id] = s
	r.suggestionOrder = append(r.suggestionOrder, s.id)

	return s.view(), nil
}

// Vote moves voterID's single ballot onto the given suggestion.
// Voting again for the same suggestion leaves the tally unchanged.
func (r *Room) Vote(voterID, suggestionID string) (SuggestionView, *errs.CustomError) {
	if r.ProblemLocked {
		return SuggestionView{}, errs.NewError(errs.ErrProblemAlreadyLocked)
	}

	if r.Status != StatusWaiting {
		return SuggestionView{}, errs.NewError(errs.ErrBattleAlreadyStarted)
	}

	target, ok := r.suggestions[suggestionID]
	if !ok {
		return SuggestionView{}, errs.NewError(errs.ErrSuggestionNotFound)
	}

	r.withdrawBallot(voterID)
	target.voters[voterID] = struct{}{}

	return target.view(), nil
}

// withdrawBallot removes voterID from every suggestion.
func (r *Room) withdrawBallot(voterID string) {
	for _, s := range r.suggestions {
		delete(s.voters, voterID)
	}
}

// Lock commits the most-voted suggestion as the room's problem. Among suggestions
// sharing the top count, the earliest submitted wins.
func (r *Room) Lock(requesterID string) (SuggestionView, ChatMessage, *errs.CustomError) {
	if r.HostID != requesterID {
		return SuggestionView{}, ChatMessage{}, errs.NewError(errs.ErrOnlyHostCanLock)
	}

	if r.ProblemLocked {
		return SuggestionView{}, ChatMessage{}, errs.NewError(errs.ErrAlreadyLocked)
	}

	if r.Status != StatusWaiting {
		return SuggestionView{}, ChatMessage{}, errs.NewError(errs.ErrBattleAlreadyStarted)
	}

	if len(r.suggestionOrder) == 0 {
		return SuggestionView{}, ChatMessage{}, errs.NewError(errs.ErrNoSuggestions)
	}

	var winner *suggestion
	for _, id := range r.suggestionOrder {
		s := r.suggestions[id]
		if winner == nil || len(s.voters) > len(winner.voters) {
			winner = s
		}
	}

	r.ProblemLocked = true
	r.Problem = Problem{
		Slug:       winner.slug,
		Title:      winner.title,
		Difficulty: winner.difficulty,
		URL:        winner.url,
	}

	label := r.Problem.Title
	if label == "" {
		label = r.Problem.Slug
	}
	notice := r.appendSystem(fmt.Sprintf("Problem locked: %s", label))

	return winner.view(), notice, nil
}
