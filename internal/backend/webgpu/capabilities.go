package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Capabilities lists the optional device features requested at acquisition.
type Capabilities struct {
	// TimestampQuery enables GPU timestamp queries for diagnostics.
	TimestampQuery bool
	// SPIRVPassthrough hands SPIR-V to the driver untranslated. The
	// wgpu-native build bundled with the bindings does not expose it, so it
	// is off by default; SPIR-V modules load through translation without it.
	SPIRVPassthrough bool
}

// DefaultCapabilities requests the features every supported native library
// can grant.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		TimestampQuery: true,
	}
}

// WGPUNativeFeature_SpirvShaderPassthrough in wgpu.h. The bindings have no
// constant for it.
const nativeFeatureSpirvShaderPassthrough = 0x00030017

var (
	featureTimestampQuery   = wgpu.FeatureNameTimestampQuery
	featureSPIRVPassthrough = wgpu.FeatureName(nativeFeatureSpirvShaderPassthrough)
)

// Features returns the device features these capabilities require.
func (c Capabilities) Features() []wgpu.FeatureName {
	var features []wgpu.FeatureName
	if c.TimestampQuery {
		features = append(features, featureTimestampQuery)
	}
	if c.SPIRVPassthrough {
		features = append(features, featureSPIRVPassthrough)
	}
	return features
}

// Missing returns the names of requested features absent from available.
func (c Capabilities) Missing(available []wgpu.FeatureName) []string {
	have := make(map[wgpu.FeatureName]bool, len(available))
	for _, f := range available {
		have[f] = true
	}

	var missing []string
	for _, f := range c.Features() {
		if !have[f] {
			missing = append(missing, featureLabel(f))
		}
	}
	return missing
}

// Intersect keeps only the requested capabilities present in available.
func (c Capabilities) Intersect(available []wgpu.FeatureName) Capabilities {
	offered := capabilitiesFrom(available)
	return Capabilities{
		TimestampQuery:   c.TimestampQuery && offered.TimestampQuery,
		SPIRVPassthrough: c.SPIRVPassthrough && offered.SPIRVPassthrough,
	}
}

// capabilitiesFrom reports which of the known capabilities a feature set grants.
func capabilitiesFrom(features []wgpu.FeatureName) Capabilities {
	var c Capabilities
	for _, f := range features {
		switch f {
		case featureTimestampQuery:
			c.TimestampQuery = true
		case featureSPIRVPassthrough:
			c.SPIRVPassthrough = true
		}
	}
	return c
}

func featureLabel(f wgpu.FeatureName) string {
	switch f {
	case featureTimestampQuery:
		return "timestamp-query"
	case featureSPIRVPassthrough:
		return "spirv-shader-passthrough"
	default:
		return fmt.Sprintf("feature(0x%x)", uint32(f))
	}
}
