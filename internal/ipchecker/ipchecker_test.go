package ipchecker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadCIDR(t *testing.T) {
	_, err := New("10.0.0.1")
	assert.Error(t, err)
}

func TestTrustedSubnetOnly(t *testing.T) {
	testCases := []struct {
		name       string
		subnet     string
		remoteAddr string
		headers    map[string]string
		wantCode   int
	}{
		{name: "remote_addr_inside", subnet: "192.168.1.0/24", remoteAddr: "192.168.1.7:5555", wantCode: http.StatusOK},
		{name: "remote_addr_outside", subnet: "192.168.1.0/24", remoteAddr: "10.0.0.7:5555", wantCode: http.StatusForbidden},
		{
			name:       "real_ip_header_wins",
			subnet:     "192.168.1.0/24",
			remoteAddr: "10.0.0.7:5555",
			headers:    map[string]string{"X-Real-IP": "192.168.1.9"},
			wantCode:   http.StatusOK,
		},
		{
			name:       "first_forwarded_for_entry",
			subnet:     "192.168.1.0/24",
			remoteAddr: "10.0.0.7:5555",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.3, 10.0.0.1"},
			wantCode:   http.StatusOK,
		},
		{name: "no_subnet_configured", subnet: "", remoteAddr: "127.0.0.1:5555", wantCode: http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			checker, err := New(testCase.subnet)
			require.NoError(t, err)

			request := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
			request.RemoteAddr = testCase.remoteAddr
			for k, v := range testCase.headers {
				request.Header.Set(k, v)
			}

			w := httptest.NewRecorder()
			checker.TrustedSubnetOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(w, request)

			assert.Equal(t, testCase.wantCode, w.Code)
		})
	}
}
