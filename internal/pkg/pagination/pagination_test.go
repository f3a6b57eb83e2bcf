package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramsFor(t *testing.T, target string) *Params {
	t.Helper()

	var captured *Params
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		captured = GetParams(c)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return captured
}

func TestGetParamsDefaults(t *testing.T) {
	params := paramsFor(t, "/")
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, DefaultLimit, params.Limit)
	assert.Equal(t, 0, params.Offset)
}

func TestGetParams(t *testing.T) {
	params := paramsFor(t, "/?page=3&limit=25")
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 25, params.Limit)
	assert.Equal(t, 50, params.Offset)
}

func TestGetParamsClamping(t *testing.T) {
	params := paramsFor(t, "/?page=-1&limit=9999")
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, MaxLimit, params.Limit)
}

func TestGetMeta(t *testing.T) {
	meta := GetMeta(&Params{Page: 2, Limit: 10}, 35)
	assert.Equal(t, 4, meta.TotalPages)
	assert.EqualValues(t, 35, meta.Total)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrev)

	last := GetMeta(&Params{Page: 4, Limit: 10}, 35)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)

	empty := GetMeta(&Params{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrev)
}
