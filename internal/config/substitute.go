package config

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/cbld/cbld/internal/diag"
	"github.com/cbld/cbld/internal/model"
)

// subMap wraps model.SubstitutionMap with the substitution algorithm
// itself (token scanning) and the fixed-point reconciliation of
// <dict> values that reference other <dict> keys.
type subMap struct {
	m *model.SubstitutionMap
}

func newSubMap() *subMap {
	return &subMap{m: model.NewSubstitutionMap()}
}

// substitute expands every "{key}" token in s. An unknown key is a
// SubstitutionError; an unbalanced brace likewise.
func (s *subMap) substitute(text string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '}' {
			return "", diag.SubstitutionErrorf(text, "unbalanced '}' at offset %d", i)
		}
		if c != '{' {
			out.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], '}')
		if end < 0 {
			return "", diag.SubstitutionErrorf(text, "unbalanced '{' at offset %d", i)
		}
		key := text[i+1 : i+1+end]
		val, ok := s.m.Get(key)
		if !ok {
			return "", diag.SubstitutionErrorf(text, "unknown substitution key %q", key)
		}
		out.WriteString(val)
		i += 1 + end + 1
	}
	return out.String(), nil
}

// addDocumentDict folds a <dict key="…">text</dict> element into the
// growable layer. It does not substitute the value yet; that happens in
// reconcile, since <dict> values may themselves reference other <dict>
// keys defined later in document order.
func (s *subMap) addDocumentDict(el *etree.Element) error {
	key := el.SelectAttrValue("key", "")
	if key == "" {
		return diag.ConfigErrorf("<dict>", "missing required \"key\" attribute")
	}
	if s.m.IsSealed(key) {
		return nil // sealed CLI/-i keys can never be shadowed, silently
	}
	s.m.Set(key, el.Text())
	return nil
}

// substState.addDocumentDict is subMap.addDocumentDict without the error return, used
// from document.go where a splice point cannot itself fail without
// aborting the whole include walk; kept as a thin helper rather than
// changing addDocumentDict's signature everywhere it is already called.
func (s *substState) addDocumentDict(el *etree.Element) {
	_ = s.sub.addDocumentDict(el)
}

const maxReconcileIterations = 10

// reconcile re-resolves every growable-layer value that itself contains
// "{key}" tokens referencing other growable or sealed keys, iterating
// to a fixed point. Values that don't reference dict keys are
// unaffected; forward and backward references within the growable
// layer both resolve, as long as the whole set converges within the
// iteration bound.
func (s *subMap) reconcile() error {
	for iter := 0; iter < maxReconcileIterations; iter++ {
		changed := false
		for _, key := range s.m.GrowableKeys() {
			val, _ := s.m.Get(key)
			if !strings.Contains(val, "{") {
				continue
			}
			resolved, err := s.substitute(val)
			if err != nil {
				continue // left as is; caught by the residual check below
			}
			if resolved != val {
				s.m.SetForce(key, resolved)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	for _, key := range s.m.GrowableKeys() {
		val, _ := s.m.Get(key)
		if strings.Contains(val, "{") {
			return diag.ConfigErrorf("<dict key=\""+key+"\">", "did not converge after %d passes", maxReconcileIterations)
		}
	}
	return nil
}
