package system

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type Metrics struct {
	mu          sync.Mutex
	cpuUsage    float64
	memoryUsage float64
	memUsedGB   float64
	memTotalGB  float64
	model       string
	lastLatency time.Duration
	requests    int
	failures    int
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// Snapshot is a copy of the counters taken under the lock.
type Snapshot struct {
	Model       string
	LastLatency time.Duration
	Requests    int
	Failures    int
}

func New(model string) *Metrics {
	if model == "" {
		model = "No model set"
	}

	return &Metrics{
		stopChan: make(chan struct{}),
		model:    model,
	}
}

// RecordRequest stores the outcome of one finished chat request.
func (m *Metrics) RecordRequest(latency time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastLatency = latency
	m.requests++
	if failed {
		m.failures++
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Model:       m.model,
		LastLatency: m.lastLatency,
		Requests:    m.requests,
		Failures:    m.failures,
	}
}

func (m *Metrics) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopChan:
				return
			case <-ticker.C:
				m.update()
			}
		}
	}()
}

// Stop ends the sampling loop. Safe to call more than once.
func (m *Metrics) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Metrics) update() {
	cpuPercent, cpuErr := cpu.Percent(0, false)
	memStats, memErr := mem.VirtualMemory()

	m.mu.Lock()
	defer m.mu.Unlock()

	if cpuErr == nil && len(cpuPercent) > 0 {
		m.cpuUsage = cpuPercent[0]
	}
	if memErr == nil {
		m.setMemory(memStats.UsedPercent, memStats.Used, memStats.Total)
	}
}

// setMemory must be called with mu held.
func (m *Metrics) setMemory(usedPercent float64, used, total uint64) {
	m.memoryUsage = usedPercent
	m.memUsedGB = float64(used) / (1024 * 1024 * 1024)   // Convert to GB
	m.memTotalGB = float64(total) / (1024 * 1024 * 1024) // Convert to GB
}

func (m *Metrics) GetFormattedMetrics() string {
	const barWidth = 12
	const barChar = "█"
	const emptyChar = "░"

	m.mu.Lock()
	defer m.mu.Unlock()

	cpuBars := clampBars(int(m.cpuUsage*float64(barWidth)/100), barWidth)
	memBars := clampBars(int(m.memoryUsage*float64(barWidth)/100), barWidth)

	var result strings.Builder

	result.WriteString(fmt.Sprintf("[blue]%s[white]", m.model))
	if m.requests > 0 {
		result.WriteString(fmt.Sprintf(" (last %s, %d sent, %d failed)",
			m.lastLatency.Round(time.Millisecond), m.requests, m.failures))
	}
	result.WriteString("\n")

	result.WriteString("CPU")
	result.WriteString(fmt.Sprintf(" [red]%s[white]%s",
		strings.Repeat(barChar, cpuBars),
		strings.Repeat(emptyChar, barWidth-cpuBars)))
	result.WriteString(fmt.Sprintf(" %.0f%%", m.cpuUsage))

	result.WriteString("  MEM")
	result.WriteString(fmt.Sprintf(" [yellow]%s[white]%s",
		strings.Repeat(barChar, memBars),
		strings.Repeat(emptyChar, barWidth-memBars)))
	result.WriteString(fmt.Sprintf(" %.0f%% %.1f/%.1fGB", m.memoryUsage, m.memUsedGB, m.memTotalGB))

	return result.String()
}

func clampBars(bars, width int) int {
	if bars > width {
		return width
	}
	if bars < 0 {
		return 0
	}
	return bars
}
