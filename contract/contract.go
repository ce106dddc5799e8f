// Package contract declares endpoint contracts as data: the binding of an
// HTTP method and path template to a named operation, its request and path
// schemas, its success response schema and status, and its declared error
// responses. The dispatcher is a generic interpreter over a Table of these.
package contract

import (
	"errors"
	"net/http"

	"github.com/notelab/noteservice/schema"
)

var (
	// ErrEmptyContractName is returned when a contract is registered without a name.
	ErrEmptyContractName = errors.New("contract name must not be empty")

	// ErrDuplicateContractName is returned when two contracts share a name.
	ErrDuplicateContractName = errors.New("contract name is already registered")

	// ErrInvalidContractMethod is returned for an unsupported HTTP method.
	ErrInvalidContractMethod = errors.New("contract method is not a supported HTTP method")

	// ErrEmptyContractPath is returned when a contract has no path template.
	ErrEmptyContractPath = errors.New("contract path template must not be empty")

	// ErrMissingResponseBody is returned when a contract declares no success schema.
	ErrMissingResponseBody = errors.New("contract must declare a response body schema")

	// ErrInvalidResponseStatus is returned when the success status is not a 2xx code.
	ErrInvalidResponseStatus = errors.New("contract response status must be a 2xx code")
)

// Contract is the immutable, declarative binding for one endpoint.
//
// RequestBody and PathParams are optional; ResponseBody and ResponseStatus
// are required. ErrorResponses maps a status code to the schema of the error
// body emitted with it.
type Contract struct {
	Name           string
	Method         string
	Path           string
	RequestBody    schema.Descriptor
	PathParams     map[string]schema.Descriptor
	ResponseBody   schema.Descriptor
	ResponseStatus int
	ErrorResponses map[int]schema.Descriptor
}

func (c Contract) validate() error {
	if c.Name == "" {
		return ErrEmptyContractName
	}

	switch c.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return ErrInvalidContractMethod
	}

	if c.Path == "" {
		return ErrEmptyContractPath
	}

	if c.ResponseBody == nil {
		return ErrMissingResponseBody
	}

	if c.ResponseStatus < 200 || c.ResponseStatus > 299 {
		return ErrInvalidResponseStatus
	}

	return nil
}

// Table is the read-only registry of contracts, built once at process start.
type Table struct {
	ordered []Contract
	byName  map[string]Contract
}

// NewTable builds a Table from the given contracts, validating each one and
// rejecting duplicate names. The registration order is preserved.
func NewTable(contracts ...Contract) (*Table, error) {
	table := &Table{
		ordered: make([]Contract, 0, len(contracts)),
		byName:  make(map[string]Contract, len(contracts)),
	}

	for _, c := range contracts {
		if err := c.validate(); err != nil {
			return nil, err
		}

		if _, exists := table.byName[c.Name]; exists {
			return nil, ErrDuplicateContractName
		}

		table.ordered = append(table.ordered, c)
		table.byName[c.Name] = c
	}

	return table, nil
}

// All returns the contracts in registration order.
func (t *Table) All() []Contract {
	all := make([]Contract, len(t.ordered))
	copy(all, t.ordered)

	return all
}

// ByName looks up a contract by its operation name.
func (t *Table) ByName(name string) (Contract, bool) {
	c, found := t.byName[name]

	return c, found
}

// Len reports the number of registered contracts.
func (t *Table) Len() int {
	return len(t.ordered)
}
