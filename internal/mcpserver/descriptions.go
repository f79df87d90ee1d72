package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeSeries() string {
	return `Computes lines of code attributed to each author or organization over the sampled history of a repository.

USE WHEN:
- Asking who wrote the code that exists today in a part of the repository
- Tracking how an organization's share of a codebase changed over time
- Finding the largest contributors to a subsystem

INTERPRETING RESULTS:
- Each point is one sampled commit, oldest first
- Counts are surviving lines as seen by git blame at that commit, not lines ever written
- Comment and blank lines are excluded by the configured ignore patterns
- "unknown" collects authors without an organization in the org map
- Organization series exist only when the configuration names a non-empty org map

METRICS RETURNED:
- Per series: part, attribution key (author or organization), points
- Per point: commit hash, commit date, name to line count map
- Indexing missing commits can take minutes on large repositories; results are cached`
}

func describeIndexStatus() string {
	return `Reports how much of the sampled history is already indexed in the blame cache.

USE WHEN:
- Checking whether contrib_series will answer quickly or has to run git blame
- Inspecting the cache before or after a long indexing run

INTERPRETING RESULTS:
- pending is the number of sampled commits missing from at least one part
- cached counts every indexed commit per part, including commits outside the sample

METRICS RETURNED:
- commits, pending, cached per part`
}
