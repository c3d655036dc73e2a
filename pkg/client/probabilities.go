package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/manifold-client/pkg/pagination"
	"github.com/tidwall/gjson"
)

// Probability is the current probability of one market. Binary markets set
// Prob; multiple-choice markets set AnswerProbs keyed by answer ID.
type Probability struct {
	Prob        float64
	AnswerProbs map[string]float64
}

// IsMultipleChoice reports whether the market reported per-answer
// probabilities.
func (p Probability) IsMultipleChoice() bool {
	return p.AnswerProbs != nil
}

// MarketProbs fetches probabilities from /market-probs in groups of
// pagination.DefaultGroupSize, one request per group. A failing group
// aborts the call. Items with neither a numeric prob nor an answerProbs
// object are omitted.
func (c *Client) MarketProbs(ctx context.Context, ids []string) (map[string]Probability, error) {
	probs := make(map[string]Probability, len(ids))

	err := pagination.FetchGrouped(ctx, ids, pagination.DefaultGroupSize, func(ctx context.Context, _ int, group []string) error {
		body, err := c.GetJSON(ctx, "/market-probs", url.Values{"ids[]": group})
		if err != nil {
			return err
		}
		return c.mergeProbs(body, probs)
	})
	if err != nil {
		return nil, err
	}

	return probs, nil
}

// mergeProbs parses one /market-probs response into probs.
func (c *Client) mergeProbs(body []byte, probs map[string]Probability) error {
	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return fmt.Errorf("/market-probs: %w: expected array", ErrUnexpectedResponse)
	}

	result.ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id").String()
		if id == "" {
			c.logger.Debug().Str("item", item.Raw).Msg("Skipping probability without id")
			return true
		}

		prob, ok := parseProbability(item)
		if !ok {
			c.logger.Debug().
				Str("id", id).
				Msg("Skipping probability with unrecognized shape")
			return true
		}
		probs[id] = prob
		return true
	})

	return nil
}

// parseProbability reads a scalar "prob" or, failing that, an "answerProbs"
// object. Non-numeric answer entries are dropped.
func parseProbability(item gjson.Result) (Probability, bool) {
	if prob := item.Get("prob"); prob.Type == gjson.Number {
		return Probability{Prob: prob.Float()}, true
	}

	answers := item.Get("answerProbs")
	if !answers.IsObject() {
		return Probability{}, false
	}

	answerProbs := make(map[string]float64)
	answers.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			answerProbs[key.String()] = value.Float()
		}
		return true
	})
	return Probability{AnswerProbs: answerProbs}, true
}
