package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"royal-collector/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := map[domain.Kind]int{
		domain.KindForbidden:           fiber.StatusForbidden,
		domain.KindNotFound:            fiber.StatusNotFound,
		domain.KindDuplicateActiveCase: fiber.StatusConflict,
		domain.KindInvariantViolation:  fiber.StatusConflict,
		domain.KindConflict:            fiber.StatusConflict,
		domain.KindInvalidReference:    fiber.StatusUnprocessableEntity,
		domain.KindTransientStorage:    fiber.StatusServiceUnavailable,
		domain.KindInvalidInput:        fiber.StatusBadRequest,
		domain.KindUnauthorized:        fiber.StatusUnauthorized,
		domain.Kind("SOMETHING_ELSE"):  fiber.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusFor(kind), kind)
	}
}

func serve(t *testing.T, err error) (int, string, Response) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return FromError(c, err) })

	resp, testErr := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var out Response
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, resp.Header.Get(fiber.HeaderRetryAfter), out
}

func TestFromError(t *testing.T) {
	t.Run("domain error", func(t *testing.T) {
		status, retry, out := serve(t, domain.NotFound("case not found"))
		assert.Equal(t, fiber.StatusNotFound, status)
		assert.Empty(t, retry)
		assert.False(t, out.Success)
		assert.Equal(t, "case not found", out.Error)
		assert.Equal(t, "NOT_FOUND", out.Code)
	})

	t.Run("transient storage sets retry-after", func(t *testing.T) {
		status, retry, _ := serve(t, domain.TransientStorage("try again", errors.New("deadlock")))
		assert.Equal(t, fiber.StatusServiceUnavailable, status)
		assert.Equal(t, "1", retry)
	})

	t.Run("unclassified error stays internal", func(t *testing.T) {
		status, _, out := serve(t, errors.New("dial tcp 10.0.0.3:3306: connection refused"))
		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.Equal(t, "Internal server error", out.Error)
		assert.Empty(t, out.Code)
	})
}
