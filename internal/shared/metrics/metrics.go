// Package metrics Prometheus 指标导出
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pearlbox"

// 拒单原因
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonNotFound          = "not_found"
	ReasonInvalid           = "invalid"
	ReasonError             = "error"
)

// Metrics 包含所有店铺指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// 订单指标
	OrdersPlaced    prometheus.Counter
	OrderRejections *prometheus.CounterVec

	// 通知指标
	Notifications *prometheus.CounterVec

	// 商品指标
	Products prometheus.Gauge
}

// New 创建指标实例，每个实例使用独立的 Registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := newWith(reg)
	m.registry = reg
	return m
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		OrdersPlaced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_placed_total",
				Help:      "Total orders committed",
			},
		),
		OrderRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_rejections_total",
				Help:      "Total order attempts rejected by reason",
			},
			[]string{"reason"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total notification attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		Products: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "products_total",
				Help:      "Number of products in the catalog",
			},
		),
	}
}

// Middleware 创建 HTTP 指标中间件
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		// 包装 ResponseWriter 以捕获状态码
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter 包装 http.ResponseWriter 以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

// idPrefixes 带 ID 的路由前缀
var idPrefixes = []string{
	"/product/",
	"/admin/edit_product/",
	"/admin/delete_product/",
	"/admin/mark_delivered/",
	"/static/images/",
}

// normalizePath 规范化路径，将 ID 替换为占位符，避免高基数
func normalizePath(path string) string {
	for _, prefix := range idPrefixes {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return prefix + "{id}"
		}
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static/{file}"
	}
	return path
}

// Handler 返回 Prometheus HTTP Handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// 以下记录方法允许 nil 接收者，未启用指标时直接忽略

// RecordOrderPlaced 记录成功下单
func (m *Metrics) RecordOrderPlaced() {
	if m == nil {
		return
	}
	m.OrdersPlaced.Inc()
}

// RecordOrderRejected 记录拒单
func (m *Metrics) RecordOrderRejected(reason string) {
	if m == nil {
		return
	}
	m.OrderRejections.WithLabelValues(reason).Inc()
}

// RecordNotification 记录一次通知发送结果
func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.Notifications.WithLabelValues(kind, result).Inc()
}

// SetProductsCount 设置商品数量
func (m *Metrics) SetProductsCount(n int) {
	if m == nil {
		return
	}
	m.Products.Set(float64(n))
}
