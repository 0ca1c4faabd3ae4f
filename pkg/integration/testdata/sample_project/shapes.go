package sample

// Area computes the area of a named shape.
func Area(kind string, a, b float64) float64 {
	if kind == "rect" {
		return a * b
	}
	if kind == "tri" {
		return a * b / 2
	}
	return 0
}

// SumTo adds the integers below n.
func SumTo(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += i
	}
	return total
}

// Grade maps a score to a letter.
func Grade(score int) string {
	if score >= 90 {
		return "A"
	} else if score >= 80 {
		return "B"
	}
	return "C"
}
