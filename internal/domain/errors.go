package domain

import "errors"

// ErrNotFound requested course, section or lesson does not exist upstream
var ErrNotFound = errors.New("Resource not found")

// ErrAccessDenied the caller is not allowed to see the resource, eg. an unpurchased lesson
var ErrAccessDenied = errors.New("Access to this content is denied")

// ErrUpstreamUnavailable the platform API could not be reached or failed
var ErrUpstreamUnavailable = errors.New("Learning platform is unavailable")

// ErrSessionClosed the player session has been torn down
var ErrSessionClosed = errors.New("Player session is closed")

// ErrNoSuchSession unknown player session id
var ErrNoSuchSession = errors.New("No such player session")

// ErrNoSuchLesson lesson is not part of the loaded curriculum
var ErrNoSuchLesson = errors.New("No such lesson in this course")

// ErrNoSuchSection section is not part of the loaded curriculum
var ErrNoSuchSection = errors.New("No such section in this course")

// ErrInvalidMove reorder indexes are out of range
var ErrInvalidMove = errors.New("Invalid reorder position")

// ErrNotReady the session has not finished loading its curriculum
var ErrNotReady = errors.New("Curriculum is not loaded yet")

// SafeViewPath where clients are sent after an access-denied response
const SafeViewPath = "/my-learning"
