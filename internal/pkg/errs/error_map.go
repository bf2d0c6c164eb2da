/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
command acknowledgments, HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// Messages are shown verbatim by the client UI.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:      {Code: ErrInvalidParams, Kind: KindInvalid, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat:  {Code: ErrInvalidJSONFormat, Kind: KindInvalid, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:  {Code: ErrRateLimitExceeded, Kind: KindInvalid, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnsupportedCommand: {Code: ErrUnsupportedCommand, Kind: KindInvalid, Message: "Unsupported command: %s", Status: http.StatusBadRequest},

	// 2xxx: Room and Battle Business Logic Errors
	ErrRoomNotFound:            {Code: ErrRoomNotFound, Kind: KindNotFound, Message: "Room not found"},
	ErrRoomIsFull:              {Code: ErrRoomIsFull, Kind: KindConflict, Message: "Room is full"},
	ErrBattleAlreadyStarted:    {Code: ErrBattleAlreadyStarted, Kind: KindConflict, Message: "Battle already started"},
	ErrOnlyHostCanStart:        {Code: ErrOnlyHostCanStart, Kind: KindForbidden, Message: "Only host can start"},
	ErrNotEveryoneReady:        {Code: ErrNotEveryoneReady, Kind: KindConflict, Message: "Not everyone is ready"},
	ErrMessageContentTooLong:   {Code: ErrMessageContentTooLong, Kind: KindInvalid, Message: "Message is too long."},
	ErrProblemAlreadyLocked:    {Code: ErrProblemAlreadyLocked, Kind: KindConflict, Message: "Problem already locked"},
	ErrProblemAlreadySuggested: {Code: ErrProblemAlreadySuggested, Kind: KindConflict, Message: "This problem was already suggested"},
	ErrSuggestionNotFound:      {Code: ErrSuggestionNotFound, Kind: KindNotFound, Message: "Suggestion not found"},
	ErrOnlyHostCanLock:         {Code: ErrOnlyHostCanLock, Kind: KindForbidden, Message: "Only host can lock problem"},
	ErrAlreadyLocked:           {Code: ErrAlreadyLocked, Kind: KindConflict, Message: "Already locked"},
	ErrNoSuggestions:           {Code: ErrNoSuggestions, Kind: KindConflict, Message: "No problems suggested yet"},
	ErrArchiveNotFound:         {Code: ErrArchiveNotFound, Kind: KindNotFound, Message: "Battle archive not found"},

	// 5xxx: Internal System Errors
	ErrUnknown:            {Code: ErrUnknown, Kind: KindInternal, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrArchiveUnavailable: {Code: ErrArchiveUnavailable, Kind: KindInternal, Message: "Battle archive is unavailable.", Status: http.StatusBadGateway},
}

// kindStatus is the HTTP status used when an entry does not set one explicitly.
var kindStatus = map[Kind]int{
	KindNotFound:  http.StatusNotFound,
	KindForbidden: http.StatusForbidden,
	KindConflict:  http.StatusConflict,
	KindInvalid:   http.StatusBadRequest,
	KindInternal:  http.StatusInternalServerError,
}
