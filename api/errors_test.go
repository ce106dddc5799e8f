package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelab/noteservice/api"
	"github.com/notelab/noteservice/contract"
	"github.com/notelab/noteservice/schema"
)

func Test_MapError_UsesFailureMessageAndCause(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := api.Fail("Error creating note", cause)

	body := api.MapError(err)

	assert.Equal(t, "Error creating note", body.Message)
	assert.Equal(t, cause.Error(), body.Details)
}

func Test_MapError_FallsBackForUnlabeledErrors(t *testing.T) {
	body := api.MapError(errors.New("boom"))

	assert.NotEmpty(t, body.Message)
	assert.Equal(t, "boom", body.Details)
}

func Test_ErrorBody_WireMatchesDeclaredSchema(t *testing.T) {
	body := api.ErrorBody{Message: "m", Details: "d"}

	_, err := api.ErrorBodySchema().Validate(body.Wire())

	assert.NoError(t, err)
}

func Test_Failure_UnwrapsToCause(t *testing.T) {
	cause := errors.New("root cause")
	err := api.Fail("context", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "context")
	assert.Contains(t, err.Error(), "root cause")
}

func Test_Dispatcher_MismatchedHandlerResultIsSerializationFailure(t *testing.T) {
	table, tableErr := contract.NewTable(contract.Contract{
		Name:           "stringResult",
		Method:         http.MethodGet,
		Path:           "/things",
		ResponseBody:   schema.String(),
		ResponseStatus: http.StatusOK,
	})
	require.NoError(t, tableErr)

	dispatcher, dispatcherErr := api.NewDispatcher(table)
	require.NoError(t, dispatcherErr)

	// The handler result does not match the declared response schema.
	require.NoError(t, dispatcher.Register("stringResult", func(context.Context, api.Request) (any, error) {
		return 42, nil
	}))

	router, routerErr := dispatcher.Router()
	require.NoError(t, routerErr)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/things", nil))

	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	errorBody := decodeBody[map[string]string](t, recorder)
	assert.NotEmpty(t, errorBody["message"])
	assert.NotEmpty(t, errorBody["details"])
}
