package impacted

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	f "github.com/multimediallc/covdiff/pkg/functional"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const DefaultMaxEntries = 64

type result struct {
	model *RenderModel
	sig   *ErrorSignal
}

// Assembler memoizes Assemble on the payload bytes, the ignored uploads and
// the capabilities, so unrelated view changes do not redo the aggregation.
// Returned models are shared between callers and must not be modified.
type Assembler struct {
	cache *lru.Cache[string, result]
	group singleflight.Group
	log   zerolog.Logger
}

func NewAssembler(maxEntries int, log zerolog.Logger) (*Assembler, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	cache, err := lru.New[string, result](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("creating render cache: %w", err)
	}
	return &Assembler{cache: cache, log: log}, nil
}

// Assemble decodes payload and builds its render model, or returns the
// cached result for an identical payload and ignored set.
func (a *Assembler) Assemble(payload []byte, ignored f.Set[int], caps Capabilities) (*RenderModel, *ErrorSignal) {
	key := cacheKey(payload, ignored, caps)
	return a.memoized(key, func() result {
		raw, sig := decodeBytes(payload)
		if sig != nil {
			return result{sig: sig}
		}
		model, sig := Assemble(raw, ignored, caps, a.log)
		return result{model: model, sig: sig}
	})
}

// AssembleFile is Assemble for an already decoded payload
func (a *Assembler) AssembleFile(raw *RawFile, ignored f.Set[int], caps Capabilities) (*RenderModel, *ErrorSignal) {
	if raw == nil {
		return Assemble(nil, ignored, caps, a.log)
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, invalid("encoding impacted file: %v", err)
	}
	return a.memoized(cacheKey(payload, ignored, caps), func() result {
		model, sig := Assemble(raw, ignored, caps, a.log)
		return result{model: model, sig: sig}
	})
}

func (a *Assembler) Len() int {
	return a.cache.Len()
}

func (a *Assembler) memoized(key string, build func() result) (*RenderModel, *ErrorSignal) {
	if res, ok := a.cache.Get(key); ok {
		return res.model, res.sig
	}
	v, _, _ := a.group.Do(key, func() (interface{}, error) {
		res := build()
		a.cache.Add(key, res)
		return res, nil
	})
	res := v.(result)
	return res.model, res.sig
}

func cacheKey(payload []byte, ignored f.Set[int], caps Capabilities) string {
	sum := sha256.Sum256(payload)
	ids := f.Map(f.SortedItems(ignored), strconv.Itoa)
	return fmt.Sprintf("%s|%s|%t|%t",
		hex.EncodeToString(sum[:]),
		strings.Join(ids, ","),
		caps.LineCoverage,
		caps.BundleAnalysis,
	)
}
