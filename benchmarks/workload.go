package main

import (
	"fmt"
	"math/rand"
	"strings"
)

// workload generates an interleaved operation sequence over n transactions.
type workload struct {
	name     string
	generate func(n int, rng *rand.Rand) string
}

var workloads = []workload{
	{"disjoint", disjointWorkload},
	{"hotspot", hotspotWorkload},
	{"random", randomWorkload},
}

// disjointWorkload gives every transaction its own resource, so neither
// protocol ever aborts.
func disjointWorkload(n int, rng *rand.Rand) string {
	programs := make([][]string, n)
	for i := range programs {
		id := i + 1
		res := resourceName(i)
		programs[i] = []string{
			op("R", id, res),
			op("W", id, res),
			op("C", id, ""),
		}
	}
	return interleave(programs, rng)
}

// hotspotWorkload has every transaction read then write the same resource:
// upgrade deadlocks under locking, validation failures under OCC.
func hotspotWorkload(n int, rng *rand.Rand) string {
	programs := make([][]string, n)
	for i := range programs {
		id := i + 1
		programs[i] = []string{
			op("R", id, "A"),
			op("W", id, "A"),
			op("C", id, ""),
		}
	}
	return interleave(programs, rng)
}

// randomWorkload issues 2-5 reads or writes per transaction over n/2+1 resources.
func randomWorkload(n int, rng *rand.Rand) string {
	resources := n/2 + 1
	programs := make([][]string, n)
	for i := range programs {
		id := i + 1
		count := 2 + rng.Intn(4)
		for range count {
			code := "R"
			if rng.Intn(3) == 0 {
				code = "W"
			}
			programs[i] = append(programs[i], op(code, id, resourceName(rng.Intn(resources))))
		}
		programs[i] = append(programs[i], op("C", id, ""))
	}
	return interleave(programs, rng)
}

// interleave merges programs keeping each program's own order.
func interleave(programs [][]string, rng *rand.Rand) string {
	var b strings.Builder
	next := make([]int, len(programs))
	live := make([]int, 0, len(programs))
	for i, p := range programs {
		if len(p) > 0 {
			live = append(live, i)
		}
	}

	for len(live) > 0 {
		k := rng.Intn(len(live))
		i := live[k]
		b.WriteString(programs[i][next[i]])
		next[i]++
		if next[i] == len(programs[i]) {
			live = append(live[:k], live[k+1:]...)
		}
	}
	return b.String()
}

func op(code string, id int, resource string) string {
	if resource == "" {
		return fmt.Sprintf("%s%d", code, id)
	}
	return fmt.Sprintf("%s%d(%s)", code, id, resource)
}

// resourceName maps 0, 1, ... 25, 26 to A, B, ... Z, A1.
func resourceName(i int) string {
	name := string(rune('A' + i%26))
	if i >= 26 {
		name += fmt.Sprint(i / 26)
	}
	return name
}
