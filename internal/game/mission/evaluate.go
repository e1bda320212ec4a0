package mission

import "sort"

// IsWinner reports whether a fully populated line satisfies the mission.
// Lines whose length differs from the board size never win; an empty line
// on an empty board vacuously wins. Order does not matter: progression
// kinds sort the line first.
func IsWinner(line []int, m Mission, boardSize int) bool {
	if len(line) != boardSize {
		return false
	}
	if len(line) == 0 {
		return true
	}

	switch m.Kind {
	case KindSum:
		sum := 0
		for _, v := range line {
			sum += v
		}
		return sum == m.Target

	case KindMultiple:
		if m.Target == 0 {
			return false
		}
		for _, v := range line {
			if v%m.Target != 0 {
				return false
			}
		}
		return true

	case KindArithmetic:
		sorted := sortedCopy(line)
		want := m.Target
		if want < 0 {
			want = -want
		}
		for i := 1; i < len(sorted); i++ {
			if sorted[i]-sorted[i-1] != want {
				return false
			}
		}
		return true

	case KindGeometric:
		sorted := sortedCopy(line)
		for i := 1; i < len(sorted); i++ {
			if sorted[i-1]*m.Target != sorted[i] {
				return false
			}
		}
		return true

	case KindPrime:
		for _, v := range line {
			if !IsPrime(v) {
				return false
			}
		}
		return true
	}
	return false
}

// IsVictory marks every cell belonging to at least one fully populated
// winning line for the mission's scope. Whole-board missions instead
// count matching cells across the board and, past 3 matches, mark the
// matching cells only.
func IsVictory(board [][]*int, m Mission) [][]bool {
	size := len(board)
	result := make([][]bool, size)
	for i := range result {
		result[i] = make([]bool, size)
	}

	if m.Scope == ScopeWholeBoard {
		markWholeBoard(board, m, result)
		return result
	}

	if m.Scope == ScopeRow || m.Scope == ScopeAnyLine {
		for y := 0; y < size; y++ {
			line, full := collectRow(board, y)
			if full && IsWinner(line, m, size) {
				for x := 0; x < size; x++ {
					result[y][x] = true
				}
			}
		}
	}

	if m.Scope == ScopeColumn || m.Scope == ScopeAnyLine {
		for x := 0; x < size; x++ {
			line, full := collectColumn(board, x)
			if full && IsWinner(line, m, size) {
				for y := 0; y < size; y++ {
					result[y][x] = true
				}
			}
		}
	}

	if m.Scope == ScopeDiagonal || m.Scope == ScopeAnyLine {
		if line, full := collectDiagonal(board, false); full && IsWinner(line, m, size) {
			for i := 0; i < size; i++ {
				result[i][i] = true
			}
		}
		if line, full := collectDiagonal(board, true); full && IsWinner(line, m, size) {
			for i := 0; i < size; i++ {
				result[i][size-i-1] = true
			}
		}
	}

	return result
}

func markWholeBoard(board [][]*int, m Mission, result [][]bool) {
	matches := func(v int) bool {
		switch m.Kind {
		case KindMultiple:
			return m.Target != 0 && v%m.Target == 0
		case KindPrime:
			return IsPrime(v)
		}
		return false
	}

	count := 0
	for _, row := range board {
		for _, cell := range row {
			if cell != nil && matches(*cell) {
				count++
			}
		}
	}
	if count <= 3 {
		return
	}
	for y, row := range board {
		for x, cell := range row {
			if cell != nil && matches(*cell) {
				result[y][x] = true
			}
		}
	}
}

// IsPrime reports primality by trial division. Values below 2 are not
// prime.
func IsPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

func collectRow(board [][]*int, y int) ([]int, bool) {
	line := make([]int, 0, len(board))
	for _, cell := range board[y] {
		if cell == nil {
			return nil, false
		}
		line = append(line, *cell)
	}
	return line, true
}

func collectColumn(board [][]*int, x int) ([]int, bool) {
	line := make([]int, 0, len(board))
	for y := range board {
		if board[y][x] == nil {
			return nil, false
		}
		line = append(line, *board[y][x])
	}
	return line, true
}

func collectDiagonal(board [][]*int, anti bool) ([]int, bool) {
	size := len(board)
	line := make([]int, 0, size)
	for i := 0; i < size; i++ {
		x := i
		if anti {
			x = size - i - 1
		}
		if board[i][x] == nil {
			return nil, false
		}
		line = append(line, *board[i][x])
	}
	return line, true
}

func sortedCopy(line []int) []int {
	out := make([]int, len(line))
	copy(out, line)
	sort.Ints(out)
	return out
}
