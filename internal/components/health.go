package components

type Health struct {
	Current float32 `yaml:"current"`
	Max     float32 `yaml:"max"`
}

func NewHealth(max float32) Health {
	return Health{Current: max, Max: max}
}

// Damage subtracts amount and reports whether the health ran out.
func (h *Health) Damage(amount float32) bool {
	h.Current -= amount
	if h.Current < 0 {
		h.Current = 0
	}
	return h.Dead()
}

func (h *Health) Heal(amount float32) {
	h.Current = min(h.Max, h.Current+amount)
}

func (h *Health) Dead() bool {
	return h.Current <= 0
}

// Fraction is the remaining health in [0, 1].
func (h *Health) Fraction() float32 {
	if h.Max <= 0 {
		return 0
	}
	return h.Current / h.Max
}
