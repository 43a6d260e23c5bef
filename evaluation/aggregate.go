package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ModelMetrics holds normalized, cross-client averaged metrics for one
// model (or for the per-client best model).
type ModelMetrics struct {
	Loss        float64 `json:"loss"`
	NumExamples float64 `json:"num_examples"`
	NumBatches  float64 `json:"num_batches"`
}

// Report is the aggregated output of one evaluation run. Its JSON form is
// an ordered mapping with the keys best, model_0..model_{T-1},
// choose_0..choose_{T-1}, metric_samples, in exactly that order; consumers
// rely on the ordering for structural equality checks.
type Report struct {
	Best          ModelMetrics
	Models        []ModelMetrics
	Choose        []float64
	MetricSamples int
}

// Aggregate reduces per-client results into one report. Every client
// contributes with uniform weight 1/N regardless of how many examples it
// holds; this equal-voice policy is deliberate and must not be replaced by
// an example-count-weighted mean. A client whose test metrics for some
// model carry a zero example count is excluded from that model's loss mean
// term only.
func Aggregate(results []ClientResult, numModels int) (Report, error) {
	if numModels < 1 {
		return Report{}, ErrNoCandidates
	}
	if len(results) == 0 {
		return Report{}, ErrNoResults
	}

	var (
		lossSum    = make([]float64, numModels)
		lossWeight = make([]float64, numModels)
		exSum      = make([]float64, numModels)
		batchSum   = make([]float64, numModels)
		chooseCnt  = make([]float64, numModels)

		bestLossSum, bestLossWeight float64
		bestExSum, bestBatchSum     float64
	)

	for _, res := range results {
		if len(res.TestMetrics) != numModels || res.ChosenIndex < 0 || res.ChosenIndex >= numModels {
			return Report{}, fmt.Errorf("client %s: %w", res.ClientID, ErrResultShape)
		}

		for i, m := range res.TestMetrics {
			if m.Loss.Count > 0 {
				lossSum[i] += m.NormalizedLoss()
				lossWeight[i]++
			}
			exSum[i] += float64(m.NumExamples)
			batchSum[i] += float64(m.NumBatches)
		}

		chosen := res.TestMetrics[res.ChosenIndex]
		if chosen.Loss.Count > 0 {
			bestLossSum += chosen.NormalizedLoss()
			bestLossWeight++
		}
		bestExSum += float64(chosen.NumExamples)
		bestBatchSum += float64(chosen.NumBatches)

		chooseCnt[res.ChosenIndex]++
	}

	n := float64(len(results))
	report := Report{
		Models:        make([]ModelMetrics, numModels),
		Choose:        make([]float64, numModels),
		MetricSamples: len(results),
	}

	report.Best = ModelMetrics{
		Loss:        safeMean(bestLossSum, bestLossWeight),
		NumExamples: bestExSum / n,
		NumBatches:  bestBatchSum / n,
	}
	for i := 0; i < numModels; i++ {
		report.Models[i] = ModelMetrics{
			Loss:        safeMean(lossSum[i], lossWeight[i]),
			NumExamples: exSum[i] / n,
			NumBatches:  batchSum[i] / n,
		}
		report.Choose[i] = chooseCnt[i] / n
	}

	return report, nil
}

func safeMean(sum, weight float64) float64 {
	if weight == 0 {
		return 0
	}

	return sum / weight
}

// Keys returns the report's key set in contract order.
func (r Report) Keys() []string {
	keys := make([]string, 0, 2*len(r.Models)+2)
	keys = append(keys, "best")
	for i := range r.Models {
		keys = append(keys, fmt.Sprintf("model_%d", i))
	}
	for i := range r.Choose {
		keys = append(keys, fmt.Sprintf("choose_%d", i))
	}

	return append(keys, "metric_samples")
}

func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeEntry := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "%q:", key)
		buf.Write(data)

		return nil
	}

	if err := writeEntry("best", r.Best); err != nil {
		return nil, err
	}
	for i, m := range r.Models {
		if err := writeEntry(fmt.Sprintf("model_%d", i), m); err != nil {
			return nil, err
		}
	}
	for i, c := range r.Choose {
		if err := writeEntry(fmt.Sprintf("choose_%d", i), c); err != nil {
			return nil, err
		}
	}
	if err := writeEntry("metric_samples", r.MetricSamples); err != nil {
		return nil, err
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (r *Report) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	numModels := 0
	for i := 0; ; i++ {
		if _, ok := raw[fmt.Sprintf("model_%d", i)]; !ok {
			break
		}
		numModels = i + 1
	}

	out := Report{
		Models: make([]ModelMetrics, numModels),
		Choose: make([]float64, numModels),
	}
	if v, ok := raw["best"]; ok {
		if err := json.Unmarshal(v, &out.Best); err != nil {
			return err
		}
	}
	for i := 0; i < numModels; i++ {
		if err := json.Unmarshal(raw[fmt.Sprintf("model_%d", i)], &out.Models[i]); err != nil {
			return err
		}
		if v, ok := raw[fmt.Sprintf("choose_%d", i)]; ok {
			if err := json.Unmarshal(v, &out.Choose[i]); err != nil {
				return err
			}
		}
	}
	if v, ok := raw["metric_samples"]; ok {
		if err := json.Unmarshal(v, &out.MetricSamples); err != nil {
			return err
		}
	}
	*r = out

	return nil
}
