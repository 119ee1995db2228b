package passage

import "strings"

// Response is the reply to a passage request, shared by the MCP tool and
// the REST endpoint.
//
// For a single reference Text and Error carry that passage's outcome. For
// several references Text joins every retrieved passage as a block headed by
// its reference, blocks separated by a blank line, and Error lists
// "<reference>: <class>" for each failed one. Results always holds the
// per-reference outcomes in request order.
type Response struct {
	Success bool     `json:"success"`
	Passage string   `json:"passage"`
	Version string   `json:"version"`
	Text    *string  `json:"text"`
	Error   *string  `json:"error"`
	Results []Result `json:"results"`
}

// NewResponse assembles the reply for passage from agg.
func NewResponse(passage, version string, agg Aggregate) Response {
	resp := Response{
		Success: agg.Success,
		Passage: passage,
		Version: version,
		Results: agg.Results,
	}

	if len(agg.Results) == 1 {
		resp.Text = agg.Results[0].Text
		resp.Error = agg.Results[0].Error
		return resp
	}

	var blocks, failures []string
	for _, r := range agg.Results {
		if r.Text != nil {
			blocks = append(blocks, r.Reference.String()+"\n"+*r.Text)
		}
		if r.Error != nil {
			failures = append(failures, r.Reference.String()+": "+*r.Error)
		}
	}
	if len(blocks) > 0 {
		text := strings.Join(blocks, "\n\n")
		resp.Text = &text
	}
	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		resp.Error = &msg
	}
	return resp
}
