package impacted

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/multimediallc/covdiff/pkg/segments"
)

// RawFile is the comparison backend's payload for one impacted file
type RawFile struct {
	IsCriticalFile bool                  `json:"isCriticalFile"`
	HeadName       string                `json:"headName"`
	BaseName       *string               `json:"baseName,omitempty"`
	FileLabel      *string               `json:"fileLabel,omitempty"`
	IsNewFile      bool                  `json:"isNewFile,omitempty"`
	IsRenamedFile  bool                  `json:"isRenamedFile,omitempty"`
	IsDeletedFile  bool                  `json:"isDeletedFile,omitempty"`
	HashedPath     string                `json:"hashedPath"`
	Segments       []segments.RawSegment `json:"segments"`
}

// Decode reads one impacted file payload. The payload may be the file object
// itself or an {"impactedFile": ...} envelope. A null payload is
// Unavailable; anything that does not look like an impacted file is Invalid.
func Decode(r io.Reader) (*RawFile, *ErrorSignal) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("reading payload: %v", err))
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (*RawFile, *ErrorSignal) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, unavailable("empty comparison payload")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, invalid("decoding payload: %v", err)
	}
	if inner, ok := envelope["impactedFile"]; ok {
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			return nil, unavailable("comparison has no impacted file")
		}
		data = inner
	}

	raw := &RawFile{}
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, invalid("decoding impacted file: %v", err)
	}
	if sig := raw.validate(); sig != nil {
		return nil, sig
	}
	return raw, nil
}

func (r *RawFile) validate() *ErrorSignal {
	if r.HeadName == "" {
		return invalid("impacted file is missing headName")
	}
	if r.HashedPath == "" {
		return invalid("impacted file %s is missing hashedPath", r.HeadName)
	}
	if _, sig := r.label(); sig != nil {
		return sig
	}
	return nil
}
