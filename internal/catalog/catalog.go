// Package catalog lists the dental services patients can book.
package catalog

import (
	"errors"
	"strings"
)

// DefaultProcedure is recorded when no service was chosen.
const DefaultProcedure = "General Consultation"

var ErrUnknownService = errors.New("catalog: unknown service")

// Service is one bookable procedure.
type Service struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

var services = []Service{
	{Slug: "general-consultation", Title: "General Consultation", Icon: "chatbubble-ellipses-outline",
		Description: "A comprehensive assessment of your oral health to detect issues early and plan treatments."},
	{Slug: "regular-check-up", Title: "Regular Check-up", Icon: "clipboard-outline",
		Description: "Routine examination to maintain dental hygiene and monitor existing conditions."},
	{Slug: "deep-cleaning", Title: "Deep Cleaning (Prophylaxis)", Icon: "water-outline",
		Description: "Thorough removal of plaque and tartar to prevent gum disease and cavities."},
	{Slug: "fluoride-treatment", Title: "Fluoride Treatment", Icon: "sparkles-outline",
		Description: "Application of fluoride to strengthen enamel and prevent tooth decay."},
	{Slug: "tooth-extraction", Title: "Tooth Extraction", Icon: "bandage-outline",
		Description: "Safe removal of damaged or decayed teeth that cannot be saved."},
	{Slug: "surgical-extraction", Title: "Surgical Extraction", Icon: "cut-outline",
		Description: "Surgical removal of impacted teeth, such as wisdom teeth."},
	{Slug: "dental-filling", Title: "Dental Filling (Composite)", Icon: "construct-outline",
		Description: "Tooth-colored fillings to restore decayed teeth while maintaining a natural look."},
	{Slug: "root-canal-therapy", Title: "Root Canal Therapy", Icon: "git-network-outline",
		Description: "Treatment to save a badly decayed or infected tooth by removing the nerve."},
	{Slug: "dental-crown", Title: "Dental Crown", Icon: "trophy-outline",
		Description: "A cap placed over a tooth to restore its shape, size, strength, and appearance."},
	{Slug: "teeth-whitening", Title: "Teeth Whitening", Icon: "sunny-outline",
		Description: "Professional bleaching to lighten the color of your teeth."},
	{Slug: "braces-adjustment", Title: "Braces Adjustment", Icon: "grid-outline",
		Description: "Periodic tightening and adjustment of orthodontic braces."},
	{Slug: "emergency-visit", Title: "Emergency Visit", Icon: "medkit-outline",
		Description: "Immediate care for urgent dental issues like severe pain or trauma."},
}

// All returns a copy of the catalogue in display order.
func All() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	return out
}

// Lookup matches a service by slug or title, case-insensitively.
func Lookup(name string) (Service, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Service{}, false
	}
	for _, s := range services {
		if key == s.Slug || key == strings.ToLower(s.Title) {
			return s, true
		}
	}
	return Service{}, false
}
