package mesh

import "time"

const (
	MAX_HISTORY = 256
)

// ValueHistory keeps the last MAX_HISTORY samples, newest first.
type ValueHistory struct {
	m_samples  [MAX_HISTORY]time.Duration
	m_hsamples int
	m_count    int
}

func NewValueHistory() *ValueHistory {
	return &ValueHistory{}
}

func (h *ValueHistory) AddSample(val time.Duration) {
	h.m_hsamples = (h.m_hsamples + MAX_HISTORY - 1) % MAX_HISTORY
	h.m_samples[h.m_hsamples] = val
	h.m_count = min(h.m_count+1, MAX_HISTORY)
}

func (h *ValueHistory) GetSampleCount() int {
	return h.m_count
}

func (h *ValueHistory) GetSample(i int) time.Duration {
	return h.m_samples[(h.m_hsamples+i)%MAX_HISTORY]
}

func (h *ValueHistory) GetSampleMin() time.Duration {
	if h.m_count == 0 {
		return 0
	}
	val := h.GetSample(0)
	for i := 1; i < h.m_count; i++ {
		val = min(val, h.GetSample(i))
	}
	return val
}

func (h *ValueHistory) GetSampleMax() time.Duration {
	if h.m_count == 0 {
		return 0
	}
	val := h.GetSample(0)
	for i := 1; i < h.m_count; i++ {
		val = max(val, h.GetSample(i))
	}
	return val
}

func (h *ValueHistory) GetAverage() time.Duration {
	if h.m_count == 0 {
		return 0
	}
	var val time.Duration
	for i := 0; i < h.m_count; i++ {
		val += h.GetSample(i)
	}
	return val / time.Duration(h.m_count)
}
