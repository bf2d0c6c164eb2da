/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific battle-room or request errors both internally
within the server and in acknowledgments sent back to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that command or request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame or payload was not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnsupportedCommand indicates that the inbound frame named an unknown command type.
	ErrUnsupportedCommand = 1008
)

// 2xxx: Room and Battle Business Logic Errors
const (
	// ErrRoomNotFound indicates that the room code does not name an active room.
	ErrRoomNotFound = 2103

	// ErrRoomIsFull indicates that the room being joined already holds the maximum number of participants.
	ErrRoomIsFull = 2104

	// ErrBattleAlreadyStarted indicates that the room has left the waiting phase.
	ErrBattleAlreadyStarted = 2105

	// ErrOnlyHostCanStart indicates that a non-host attempted to start the battle.
	ErrOnlyHostCanStart = 2106

	// ErrNotEveryoneReady indicates that at least one participant is not ready.
	ErrNotEveryoneReady = 2107

	// ErrMessageContentTooLong indicates that a chat message exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrProblemAlreadyLocked indicates that suggestions and votes are closed.
	ErrProblemAlreadyLocked = 2301

	// ErrProblemAlreadySuggested indicates that the problem slug is already among the suggestions.
	ErrProblemAlreadySuggested = 2302

	// ErrSuggestionNotFound indicates that the suggestion id is unknown in the room.
	ErrSuggestionNotFound = 2303

	// ErrOnlyHostCanLock indicates that a non-host attempted to lock the problem.
	ErrOnlyHostCanLock = 2304

	// ErrAlreadyLocked indicates that the host attempted to lock an already locked problem.
	ErrAlreadyLocked = 2305

	// ErrNoSuggestions indicates that a lock was attempted before any problem was suggested.
	ErrNoSuggestions = 2306

	// ErrArchiveNotFound indicates that no transcript was archived for the room and finish time.
	ErrArchiveNotFound = 2401
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrArchiveUnavailable indicates that the transcript archive could not be reached.
	ErrArchiveUnavailable = 5001
)
