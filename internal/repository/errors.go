package repository

import "errors"

// ErrNotOwner is returned by ownership-guarded writes when the WHERE clause
// matched no rows because the caller does not own the target. Handlers map
// it to 403/404 without distinguishing "missing" from "not yours".
var ErrNotOwner = errors.New("caller does not own the target row")

// ErrDuplicate is returned when an insert loses a uniqueness race — two
// concurrent signups for one email reach the unique index together and the
// loser surfaces here instead of as a raw constraint violation.
var ErrDuplicate = errors.New("row already exists")
