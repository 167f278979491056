package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestCount 从默认注册表中读取 HTTP 请求计数。
func requestCount(t *testing.T, method, path, status string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "stratflow_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["method"] == method && labels["path"] == path && labels["status"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetricsCountsByRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/workspace/:entId", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := requestCount(t, http.MethodGet, "/workspace/:entId", "200")
	beforeMissing := requestCount(t, http.MethodGet, "unmatched", "404")

	for _, ent := range []string{"acme", "globex"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workspace/"+ent, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, before+2, requestCount(t, http.MethodGet, "/workspace/:entId", "200"))
	assert.Equal(t, beforeMissing+1, requestCount(t, http.MethodGet, "unmatched", "404"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `stratflow_http_requests_total{method="GET",path="/workspace/:entId",status="200"}`)
	assert.NotContains(t, w.Body.String(), `path="/workspace/acme"`)
}

func TestRequestLoggerKeepsBodyReadable(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	var got string
	r.POST("/workspace/:entId", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		got = string(b)
		c.Status(http.StatusOK)
	})

	body := `{"processes":[]}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/workspace/acme", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, got)
}

func TestSensitivePaths(t *testing.T) {
	assert.True(t, sensitive("/api/auth/login"))
	assert.True(t, sensitive("/api/enterprises"))
	assert.True(t, sensitive("/api/users/me/password"))
	assert.False(t, sensitive("/api/workspace/acme"))
}
