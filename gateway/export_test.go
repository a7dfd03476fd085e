package gateway

// Exported aliases for testing internal functions from
// the gateway_test package.

// RenderPRBodyForTest exposes renderPRBody.
var RenderPRBodyForTest = renderPRBody
