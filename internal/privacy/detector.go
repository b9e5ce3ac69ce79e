package privacy

import (
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"go.uber.org/zap"
)

// Detector finds PII in free text using a pattern library
type Detector struct {
	library *Library
	logger  *logger.Logger
}

// NewDetector creates a new offline PII detector
func NewDetector(lib *Library, log *logger.Logger) *Detector {
	if log == nil {
		log = logger.NewNop()
	}
	log.Debug("Privacy detector initialized", zap.Int("pii_types", lib.Len()))
	return &Detector{
		library: lib,
		logger:  log,
	}
}

// Library returns the catalog the detector matches against
func (d *Detector) Library() *Library {
	return d.library
}

// Detect returns the distinct labels of the enabled PII types found in text.
// An empty enabled list enables every type; unknown ids are ignored.
// Labels follow catalog declaration order.
func (d *Detector) Detect(text string, enabled []string) []string {
	found := d.scan(text)

	allowed := d.enabledSet(enabled)
	labels := make([]string, 0, len(found))
	seen := make(map[string]bool, len(found))

	for idx, t := range d.library.types {
		if !found[idx] {
			continue
		}
		if allowed != nil && !allowed[t.ID] {
			continue
		}
		if seen[t.Label] {
			continue
		}
		seen[t.Label] = true
		labels = append(labels, t.Label)

		d.logger.Debug("PII detected", zap.String("pii_type", t.ID))
	}

	return labels
}

// scan runs every pattern in claim order. Each match is blanked in a working
// copy so that later patterns cannot fire on bytes already attributed.
func (d *Detector) scan(text string) []bool {
	found := make([]bool, len(d.library.types))
	work := []byte(text)

	for _, idx := range d.library.claimOrder {
		locs := d.library.types[idx].pattern.FindAllIndex(work, -1)
		if len(locs) == 0 {
			continue
		}
		found[idx] = true
		for _, loc := range locs {
			for i := loc[0]; i < loc[1]; i++ {
				work[i] = ' '
			}
		}
	}

	return found
}

// enabledSet returns nil when every type is enabled
func (d *Detector) enabledSet(enabled []string) map[string]bool {
	if len(enabled) == 0 {
		return nil
	}
	set := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		if _, ok := d.library.byID[id]; ok {
			set[id] = true
		}
	}
	return set
}
