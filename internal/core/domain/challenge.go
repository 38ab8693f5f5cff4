package domain

import "encoding/json"

type Citation struct {
	ChunkID string `json:"chunk_id"`
	DocName string `json:"doc_name"`
	Page    int    `json:"page"`
	Snippet string `json:"snippet"`
}

// MergedEvidence is the single neutral summary produced in merged mode.
type MergedEvidence struct {
	Summary   string
	Citations []Citation
}

// PartyEvidence is one side of a side-by-side response.
type PartyEvidence struct {
	Summary   string
	Citations []Citation
}

type SideBySideEvidence struct {
	PartyA PartyEvidence
	PartyB PartyEvidence
}

// ChallengeResponse carries exactly one of Merged or SideBySide, or neither
// when NoEvidence is set.
type ChallengeResponse struct {
	Treatment  Treatment
	QueryUsed  string
	NoEvidence bool
	Merged     *MergedEvidence
	SideBySide *SideBySideEvidence
}

func NoEvidenceResponse(treatment Treatment, query string) ChallengeResponse {
	return ChallengeResponse{Treatment: treatment, QueryUsed: query, NoEvidence: true}
}

type challengeResponseJSON struct {
	Treatment       Treatment  `json:"treatment"`
	QueryUsed       string     `json:"query_used"`
	NoEvidence      bool       `json:"no_evidence"`
	Summary         string     `json:"summary"`
	Citations       []Citation `json:"citations"`
	PartyAEvidence  string     `json:"party_a_evidence"`
	PartyACitations []Citation `json:"party_a_citations"`
	PartyBEvidence  string     `json:"party_b_evidence"`
	PartyBCitations []Citation `json:"party_b_citations"`
}

// MarshalJSON flattens the variant into a fixed schema where unused fields
// are present with empty values.
func (r ChallengeResponse) MarshalJSON() ([]byte, error) {
	out := challengeResponseJSON{
		Treatment:       r.Treatment,
		QueryUsed:       r.QueryUsed,
		NoEvidence:      r.NoEvidence,
		Citations:       []Citation{},
		PartyACitations: []Citation{},
		PartyBCitations: []Citation{},
	}
	if r.Merged != nil {
		out.Summary = r.Merged.Summary
		out.Citations = nonNilCitations(r.Merged.Citations)
	}
	if r.SideBySide != nil {
		out.PartyAEvidence = r.SideBySide.PartyA.Summary
		out.PartyACitations = nonNilCitations(r.SideBySide.PartyA.Citations)
		out.PartyBEvidence = r.SideBySide.PartyB.Summary
		out.PartyBCitations = nonNilCitations(r.SideBySide.PartyB.Citations)
	}
	return json.Marshal(out)
}

func (r *ChallengeResponse) UnmarshalJSON(data []byte) error {
	var in challengeResponseJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ChallengeResponse{Treatment: in.Treatment, QueryUsed: in.QueryUsed, NoEvidence: in.NoEvidence}
	if in.NoEvidence {
		return nil
	}
	switch in.Treatment {
	case TreatmentSideBySide:
		r.SideBySide = &SideBySideEvidence{
			PartyA: PartyEvidence{Summary: in.PartyAEvidence, Citations: in.PartyACitations},
			PartyB: PartyEvidence{Summary: in.PartyBEvidence, Citations: in.PartyBCitations},
		}
	default:
		r.Merged = &MergedEvidence{Summary: in.Summary, Citations: in.Citations}
	}
	return nil
}

func nonNilCitations(in []Citation) []Citation {
	if in == nil {
		return []Citation{}
	}
	return in
}
