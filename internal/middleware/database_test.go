package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestDatabaseRequired(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/write", DatabaseRequired(db), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	mock.ExpectPing()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/write", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/write", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Database not connected"}`, string(body))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseRequiredNilDB(t *testing.T) {
	app := fiber.New()
	app.Post("/write", DatabaseRequired(nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/write", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
