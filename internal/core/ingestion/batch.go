package ingestion

// PlanBatches packs chunks into embedding requests in a single greedy
// pass, preserving chunk order. A chunk whose token count exceeds
// itemCeiling is skipped entirely (recorded in Plan.Skipped, never
// sent). Otherwise the chunk joins the current batch unless that would
// push the batch past batchCeiling, in which case the batch is closed
// and the chunk starts the next one. A single chunk above batchCeiling
// but within itemCeiling travels in a batch of its own. The trailing
// partial batch is always emitted.
func PlanBatches(chunks []Chunk, itemCeiling, batchCeiling int) Plan {
	var plan Plan
	var cur Batch

	for i, ch := range chunks {
		if ch.TokenCount > itemCeiling {
			plan.Skipped = append(plan.Skipped, i)
			continue
		}
		if len(cur.Indices) > 0 && cur.TokenCount+ch.TokenCount > batchCeiling {
			plan.Batches = append(plan.Batches, cur)
			cur = Batch{}
		}
		cur.Indices = append(cur.Indices, i)
		cur.TokenCount += ch.TokenCount
	}

	if len(cur.Indices) > 0 {
		plan.Batches = append(plan.Batches, cur)
	}
	return plan
}
