// Package metrics 提供 Prometheus 文本格式的监控指标
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry 指标注册表
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// Counter 计数器
type Counter struct {
	name   string
	help   string
	labels []string
	mu     sync.RWMutex
	values map[string]float64
}

// Gauge 仪表
type Gauge struct {
	name   string
	help   string
	labels []string
	mu     sync.RWMutex
	values map[string]float64
}

// Histogram 直方图
type Histogram struct {
	name    string
	help    string
	labels  []string
	buckets []float64
	mu      sync.RWMutex
	counts  map[string][]int
	sums    map[string]float64
}

var (
	registry *Registry
	once     sync.Once
)

// Get 获取全局注册表
func Get() *Registry {
	once.Do(func() {
		registry = &Registry{
			counters:   make(map[string]*Counter),
			gauges:     make(map[string]*Gauge),
			histograms: make(map[string]*Histogram),
		}
		registry.newCounter("zhiban_http_requests_total", "HTTP请求总数", []string{"method", "path", "status"})
		registry.newHistogram("zhiban_http_request_duration_seconds", "HTTP请求延迟",
			[]string{"method", "path"},
			[]float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
		registry.newCounter("zhiban_roster_generation_total", "排班生成次数", []string{"stage", "status"})
		registry.newHistogram("zhiban_roster_generation_duration_seconds", "排班生成延迟",
			[]string{"stage"},
			[]float64{0.1, 0.5, 1, 2.5, 5, 10, 30})
		registry.newCounter("zhiban_stitch_reverts_total", "拼接整天回退次数", nil)
		registry.newGauge("zhiban_roster_score", "最近一次排班评分", nil)
	})
	return registry
}

func (r *Registry) newCounter(name, help string, labels []string) {
	r.counters[name] = &Counter{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func (r *Registry) newGauge(name, help string, labels []string) {
	r.gauges[name] = &Gauge{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func (r *Registry) newHistogram(name, help string, labels []string, buckets []float64) {
	r.histograms[name] = &Histogram{
		name: name, help: help, labels: labels, buckets: buckets,
		counts: make(map[string][]int), sums: make(map[string]float64),
	}
}

// Add 计数器累加
func (c *Counter) Add(v float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[strings.Join(labelValues, "\x00")] += v
}

// Set 设置仪表值
func (g *Gauge) Set(v float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[strings.Join(labelValues, "\x00")] = v
}

// Observe 记录直方图观测值
func (h *Histogram) Observe(v float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := strings.Join(labelValues, "\x00")
	if _, ok := h.counts[key]; !ok {
		h.counts[key] = make([]int, len(h.buckets)+1)
	}
	for i, b := range h.buckets {
		if v <= b {
			h.counts[key][i]++
		}
	}
	h.counts[key][len(h.buckets)]++
	h.sums[key] += v
}

// RecordRequest 记录 HTTP 请求指标
func RecordRequest(method, path string, status int, duration time.Duration) {
	r := Get()
	r.counters["zhiban_http_requests_total"].Add(1, method, path, fmt.Sprintf("%d", status))
	r.histograms["zhiban_http_request_duration_seconds"].Observe(duration.Seconds(), method, path)
}

// RecordGeneration 记录排班生成指标
func RecordGeneration(stage int, success bool, score float64, duration time.Duration) {
	r := Get()
	status := "success"
	if !success {
		status = "failure"
	}
	stageLabel := fmt.Sprintf("%d", stage)
	r.counters["zhiban_roster_generation_total"].Add(1, stageLabel, status)
	r.histograms["zhiban_roster_generation_duration_seconds"].Observe(duration.Seconds(), stageLabel)
	if success {
		r.gauges["zhiban_roster_score"].Set(score)
	}
}

// RecordStitchReverts 记录拼接回退天数
func RecordStitchReverts(n int) {
	if n > 0 {
		Get().counters["zhiban_stitch_reverts_total"].Add(float64(n))
	}
}

// Handler 返回 Prometheus 文本格式的指标端点
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		r := Get()
		r.mu.RLock()
		defer r.mu.RUnlock()

		for _, c := range sortedCounters(r) {
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name)
			c.mu.RLock()
			for key, v := range c.values {
				fmt.Fprintf(w, "%s%s %g\n", c.name, formatLabels(c.labels, key), v)
			}
			c.mu.RUnlock()
		}
		for _, g := range sortedGauges(r) {
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.name, g.help, g.name)
			g.mu.RLock()
			for key, v := range g.values {
				fmt.Fprintf(w, "%s%s %g\n", g.name, formatLabels(g.labels, key), v)
			}
			g.mu.RUnlock()
		}
		for _, h := range sortedHistograms(r) {
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
			h.mu.RLock()
			for key, counts := range h.counts {
				withLe := func(le string) string {
					if len(h.labels) == 0 {
						return le
					}
					return key + "\x00" + le
				}
				leLabels := append(append([]string(nil), h.labels...), "le")
				// counts[i] 已是累积值（Observe 对每个覆盖桶自增）
				for i, bucket := range h.buckets {
					fmt.Fprintf(w, "%s_bucket%s %d\n", h.name,
						formatLabels(leLabels, withLe(fmt.Sprintf("%g", bucket))), counts[i])
				}
				total := counts[len(h.buckets)]
				fmt.Fprintf(w, "%s_bucket%s %d\n", h.name,
					formatLabels(leLabels, withLe("+Inf")), total)
				fmt.Fprintf(w, "%s_sum%s %g\n", h.name, formatLabels(h.labels, key), h.sums[key])
				fmt.Fprintf(w, "%s_count%s %d\n", h.name, formatLabels(h.labels, key), total)
			}
			h.mu.RUnlock()
		}
	})
}

func formatLabels(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	values := strings.Split(key, "\x00")
	parts := make([]string, 0, len(names))
	for i, n := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%q", n, v))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func sortedCounters(r *Registry) []*Counter {
	out := make([]*Counter, 0, len(r.counters))
	for _, c := range r.counters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func sortedGauges(r *Registry) []*Gauge {
	out := make([]*Gauge, 0, len(r.gauges))
	for _, g := range r.gauges {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func sortedHistograms(r *Registry) []*Histogram {
	out := make([]*Histogram, 0, len(r.histograms))
	for _, h := range r.histograms {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
