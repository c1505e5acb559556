package obis

import "github.com/NotCoffee418/p1_telemetry/pkg/types"

type Extractor struct {
	registry *Registry
	offsets  Offsets
}

// Initialize a new Extractor. A nil registry selects DefaultRegistry.
func NewExtractor(registry *Registry, offsets Offsets) *Extractor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Extractor{registry: registry, offsets: offsets}
}

// Extract decodes the body lines of one telegram.
// Lines matching no identifier are ignored. A field that fails to decode is
// left absent and reported; the rest of the reading is still returned.
func (e *Extractor) Extract(lines []string) (types.MeterReading, []*FieldDecodeError) {
	b := types.NewReadingBuilder()
	var errs []*FieldDecodeError

	for _, line := range lines {
		for _, field := range e.registry.fields {
			match := field.Pattern.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			if err := field.Decode(b, match, e.offsets); err != nil {
				errs = append(errs, &FieldDecodeError{
					Identifier: field.Identifier,
					Raw:        line,
					Err:        err,
				})
			}
			break
		}
	}

	return b.Build(), errs
}
