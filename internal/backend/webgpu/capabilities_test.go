package webgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesFeatures(t *testing.T) {
	assert.Empty(t, Capabilities{}.Features())

	assert.Equal(t, []wgpu.FeatureName{featureTimestampQuery}, DefaultCapabilities().Features())

	all := Capabilities{TimestampQuery: true, SPIRVPassthrough: true}.Features()
	assert.Equal(t, []wgpu.FeatureName{featureTimestampQuery, featureSPIRVPassthrough}, all)

	only := Capabilities{SPIRVPassthrough: true}.Features()
	assert.Equal(t, []wgpu.FeatureName{featureSPIRVPassthrough}, only)
}

func TestDefaultCapabilitiesOmitPassthrough(t *testing.T) {
	// The bundled wgpu-native never reports passthrough, so requiring it
	// would make acquisition impossible.
	assert.False(t, DefaultCapabilities().SPIRVPassthrough)
	assert.Equal(t, wgpu.FeatureName(0x00030017), featureSPIRVPassthrough)
}

func TestCapabilitiesMissing(t *testing.T) {
	caps := Capabilities{TimestampQuery: true, SPIRVPassthrough: true}

	assert.Empty(t, caps.Missing([]wgpu.FeatureName{featureSPIRVPassthrough, featureTimestampQuery}))
	assert.Equal(t, []string{"spirv-shader-passthrough"}, caps.Missing([]wgpu.FeatureName{featureTimestampQuery}))
	assert.Equal(t, []string{"timestamp-query", "spirv-shader-passthrough"}, caps.Missing(nil))
	assert.Empty(t, Capabilities{}.Missing(nil))
	assert.Empty(t, DefaultCapabilities().Missing([]wgpu.FeatureName{featureTimestampQuery}))
}

func TestCapabilitiesIntersect(t *testing.T) {
	caps := Capabilities{TimestampQuery: true, SPIRVPassthrough: true}

	assert.Equal(t, Capabilities{}, caps.Intersect(nil))
	assert.Equal(t, Capabilities{TimestampQuery: true}, caps.Intersect([]wgpu.FeatureName{featureTimestampQuery}))
	assert.Equal(t, caps, caps.Intersect([]wgpu.FeatureName{featureSPIRVPassthrough, featureTimestampQuery}))

	// Offered but not requested stays off.
	assert.Equal(t, Capabilities{}, Capabilities{}.Intersect([]wgpu.FeatureName{featureTimestampQuery}))
}

func TestCapabilitiesFromRoundTrip(t *testing.T) {
	for _, caps := range []Capabilities{
		{},
		{TimestampQuery: true},
		{SPIRVPassthrough: true},
		{TimestampQuery: true, SPIRVPassthrough: true},
		DefaultCapabilities(),
	} {
		assert.Equal(t, caps, capabilitiesFrom(caps.Features()))
	}
}
