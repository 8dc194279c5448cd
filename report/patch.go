package report

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-yaml"

	jsonpatch "github.com/evanphx/json-patch"
)

// MergePatch returns the JSON merge patch turning the model document
// before into after. Both are YAML.
func MergePatch(before, after []byte) ([]byte, error) {
	a, err := yaml.YAMLToJSON(before)
	if err != nil {
		return nil, fmt.Errorf("converting original document: %w", err)
	}
	b, err := yaml.YAMLToJSON(after)
	if err != nil {
		return nil, fmt.Errorf("converting optimized document: %w", err)
	}
	return jsonpatch.CreateMergePatch(a, b)
}

// ApplyPatch applies a patch to a YAML model document and returns the
// patched document as JSON. A patch holding a JSON array is an RFC 6902
// JSON Patch; otherwise it is a merge patch.
func ApplyPatch(doc, patch []byte) ([]byte, error) {
	d, err := yaml.YAMLToJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("converting document: %w", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(patch), []byte("[")) {
		ops, err := jsonpatch.DecodePatch(patch)
		if err != nil {
			return nil, err
		}
		return ops.Apply(d)
	}
	return jsonpatch.MergePatch(d, patch)
}
