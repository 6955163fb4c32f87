// Copyright 2025 Ticket721 SAS

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     https://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controller

import "errors"

var (
	// ErrUnauthorizedCaller indicates a caller without the rights the
	// operation demands: not the contract owner, not a group manager, not
	// the ticket owner.
	ErrUnauthorizedCaller = errors.New("unauthorized caller")

	// ErrInvalidCollector indicates a zero fee collector address.
	ErrInvalidCollector = errors.New("invalid collector")

	// ErrSaleClosed indicates a mint outside the category's sale window.
	ErrSaleClosed = errors.New("sale not open")

	// ErrNoTickets indicates a mint request with an empty ticket list.
	ErrNoTickets = errors.New("no tickets requested")

	// ErrNoAttachments indicates an attach request with an empty
	// attachment list.
	ErrNoAttachments = errors.New("no attachments requested")

	// ErrPaymentTooLow indicates a payment list whose purchasing power
	// does not cover the number of tickets requested.
	ErrPaymentTooLow = errors.New("paid amount too low")

	// ErrInvalidAuthorization indicates a required authorization that is
	// missing, malformed or signed by the wrong key.
	ErrInvalidAuthorization = errors.New("invalid authorization signature")

	// ErrUselessCode indicates a code supplied without a signature.
	ErrUselessCode = errors.New("useless code")

	// ErrUselessSignature indicates a signature supplied without a code
	// where the category requires neither.
	ErrUselessSignature = errors.New("useless signature")

	// ErrGroupMismatch indicates a declared group id that does not match
	// the ticket's recorded affiliation, or a withdrawal emitter that does
	// not own the derived group.
	ErrGroupMismatch = errors.New("invalid group_id")

	// ErrCategoryMismatch indicates a declared category index that does
	// not match the ticket's recorded affiliation.
	ErrCategoryMismatch = errors.New("invalid category")

	// ErrInvalidTarget indicates a zero withdrawal target.
	ErrInvalidTarget = errors.New("invalid target")
)

// Error is the failure of one controller operation, namespaced by component
// and operation. Monitors match on the rendered prefix; programs match the
// wrapped cause with errors.Is.
type Error struct {
	Component string
	Op        string
	Err       error
}

func (e *Error) Error() string {
	return e.Component + "::" + e.Op + " | " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// opErr wraps a failure of a core controller operation.
func opErr(op string, err error) error {
	return &Error{Component: "T721C", Op: op, Err: err}
}

// attachErr wraps a failure of an attachment operation.
func attachErr(op string, err error) error {
	return &Error{Component: "T721AC", Op: op, Err: err}
}
