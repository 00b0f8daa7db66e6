package service

import "encoding/json"

// CriticalFields is the fixed set of contract attributes whose draft vs.
// canonical discrepancy must be reported and audited. Arbitrary extra fields
// in either extraction pass through untouched.
var CriticalFields = []string{
	"tipo_contrato",
	"data_efetiva",
	"data_termo",
	"tipo_renovacao",
	"periodo_renovacao",
	"prazo_pre_aviso",
	"prazo_pre_aviso_renovacao",
	"prazo_rescisao",
	"prazo_resolucao",
	"lei_aplicavel",
	"foro_arbitragem",
	"processa_dados_pessoais",
	"possui_dpa",
	"transferencia_internacional",
	"classificacao_juridica",
}

// FieldDelta is the before/after pair recorded for one differing critical
// field. A nil side means the field was absent from that extraction.
type FieldDelta struct {
	Draft     any `json:"draft"`
	Canonical any `json:"canonical"`
}

// ComputeDiff compares the draft and canonical extractions on the critical
// fields. Comparison is structural: both values are serialized to JSON
// (encoding/json emits map keys in sorted order, so the result is
// deterministic) and the serialized forms compared. A field absent from both
// sides is skipped; a field present on only one side appears with the missing
// side as nil. Nested values are not diffed per key: any nested difference
// marks the whole top-level field as changed.
func ComputeDiff(draft, canonical map[string]any) map[string]FieldDelta {
	diff := make(map[string]FieldDelta)

	for _, field := range CriticalFields {
		draftVal, draftOK := draft[field]
		canonVal, canonOK := canonical[field]

		if !draftOK && !canonOK {
			continue
		}
		if draftOK && canonOK && serialize(draftVal) == serialize(canonVal) {
			continue
		}

		delta := FieldDelta{}
		if draftOK {
			delta.Draft = draftVal
		}
		if canonOK {
			delta.Canonical = canonVal
		}
		diff[field] = delta
	}

	return diff
}

// DiffToJSONMap converts a diff into the shape persisted on the canonical
// extraction row and the audit entry. Returns nil for an empty diff so the
// stored column stays null.
func DiffToJSONMap(diff map[string]FieldDelta) map[string]any {
	if len(diff) == 0 {
		return nil
	}
	out := make(map[string]any, len(diff))
	for field, delta := range diff {
		out[field] = map[string]any{
			"draft":     delta.Draft,
			"canonical": delta.Canonical,
		}
	}
	return out
}

func serialize(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Unserializable values compare by Go string form; extraction
		// payloads come from JSON so this path is unreachable in practice.
		return "!" + err.Error()
	}
	return string(data)
}
