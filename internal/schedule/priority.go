package schedule

import (
	"strings"

	"github.com/odontosys/agenda-api/internal/model"
)

// PriorityConfig holds the configurable synonym and keyword sets used when an
// appointment carries no explicit priority.
type PriorityConfig struct {
	EmergencyTypes  []string
	UrgencyKeywords []string
}

// DefaultPriorityConfig matches the clinic's reference sets. The keyword set
// is Spanish-first because that is what shows up in the notes field.
func DefaultPriorityConfig() PriorityConfig {
	return PriorityConfig{
		EmergencyTypes:  []string{"emergency", "emergencia", "urgencia"},
		UrgencyKeywords: []string{"urgente", "dolor"},
	}
}

// Resolve computes the effective display priority. An explicit valid priority
// always wins and is never overridden by inference; otherwise an
// emergency-type appointment is urgent, an appointment whose notes mention an
// urgency keyword is high, and everything else is normal. Total: always
// returns a value.
func (c PriorityConfig) Resolve(a *model.Appointment) model.Priority {
	if a.Priority.Valid() {
		return a.Priority
	}

	typ := strings.ToLower(string(a.Type))
	for _, syn := range c.EmergencyTypes {
		if typ == strings.ToLower(syn) {
			return model.PriorityUrgent
		}
	}

	notes := strings.ToLower(a.Notes)
	for _, kw := range c.UrgencyKeywords {
		if kw != "" && strings.Contains(notes, strings.ToLower(kw)) {
			return model.PriorityHigh
		}
	}
	return model.PriorityNormal
}
