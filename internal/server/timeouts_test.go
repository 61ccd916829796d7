package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	s := New(":8080", http.NotFoundHandler(), Timeouts{})
	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, 5*time.Second, s.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Second, s.ReadTimeout)
	assert.Equal(t, 30*time.Second, s.WriteTimeout)
	assert.Equal(t, 60*time.Second, s.IdleTimeout)
}

func TestNew_Overrides(t *testing.T) {
	s := New(":9000", http.NotFoundHandler(), Timeouts{Write: time.Minute})
	assert.Equal(t, time.Minute, s.WriteTimeout)
	assert.Equal(t, 15*time.Second, s.ReadTimeout)
}
