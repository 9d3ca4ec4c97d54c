package http

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/fjod/soundpack-store/internal/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactBody = `{"name":"Ada","email":"ada@example.com","subject":"Hi","message":"Hello"}`

func TestContact_Sent(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/contact", contactBody)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, "Ada", env.mailer.sent[0].Name)
}

func TestContact_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/contact", `{"name":"Ada","email":"bad"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Equal(t, "email,subject,message", resp.Details)
	assert.Empty(t, env.mailer.sent)
}

func TestContact_DeliveryFailed(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = fmt.Errorf("%w: status 400", contact.ErrDeliveryFailed)

	w := env.do(t, http.MethodPost, "/api/contact", contactBody)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
