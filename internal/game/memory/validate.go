package memory

// CellStatus is the occupancy state of one board cell.
type CellStatus string

const (
	CellFree     CellStatus = "free"
	CellReserved CellStatus = "reserved"
	CellUsed     CellStatus = "used"
)

// Cell is one board cell. OccupiedBy is empty for free cells.
type Cell struct {
	Status     CellStatus `json:"status"`
	OccupiedBy string     `json:"occupiedBy,omitempty"`
}

// Requirement describes the state every covered cell must be in for a
// placement to be legal. FreeAllowance lets that many free cells pass
// even though the requirement is reserved-by-player (the use-after-free
// allowance).
type Requirement struct {
	Status        CellStatus
	By            string
	FreeAllowance int
}

// CanPlace reports whether shape fits at (x,y): the bounding box must be
// inside the board, the budget must cover the card cost, and every cell
// the shape covers must satisfy the requirement.
func CanPlace(shape Shape, x, y int, board [][]Cell, req Requirement, budget, cost int) bool {
	if budget < cost {
		return false
	}
	if len(shape) == 0 {
		return false
	}
	height := len(shape)
	width := len(shape[0])
	if x < 0 || y < 0 || y+height > len(board) || x+width > len(board[0]) {
		return false
	}

	allowance := req.FreeAllowance
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			if shape[dy][dx] != 1 {
				continue
			}
			cell := board[y+dy][x+dx]
			if cell.Status == req.Status && (req.By == "" || cell.OccupiedBy == req.By) {
				continue
			}
			if cell.Status == CellFree && allowance > 0 {
				allowance--
				continue
			}
			return false
		}
	}
	return true
}

// Mutate writes state to every cell the shape covers. Cells outside the
// shape are untouched. Callers validate with CanPlace first.
func Mutate(board [][]Cell, shape Shape, x, y int, state Cell) {
	for dy := range shape {
		for dx := range shape[dy] {
			if shape[dy][dx] == 1 {
				board[y+dy][x+dx] = state
			}
		}
	}
}

// areaCells maps an area tag to board coordinates. The any-* areas need
// an anchor point; hasAnchor reports whether one was supplied. Cells
// outside the board are filtered by the caller.
func areaCells(area Area, boardSize int, x, y int, hasAnchor bool) [][2]int {
	switch area {
	case AreaAnyOne:
		if !hasAnchor {
			return nil
		}
		return [][2]int{{x, y}}

	case AreaAny2x2:
		if !hasAnchor {
			return nil
		}
		return block(x, y, 2)

	case AreaAny3x3:
		if !hasAnchor {
			return nil
		}
		return block(x, y, 3)

	case AreaCenter2x2:
		center := boardSize / 2
		return block(center-1, center-1, 2)

	case AreaCenter3x3:
		center := boardSize / 2
		return block(center-1, center-1, 3)

	case AreaPeripheral:
		var coords [][2]int
		for i := 0; i < boardSize; i++ {
			coords = append(coords, [2]int{i, 0}, [2]int{i, boardSize - 1})
			if i > 0 && i < boardSize-1 {
				coords = append(coords, [2]int{0, i}, [2]int{boardSize - 1, i})
			}
		}
		return coords
	}
	return nil
}

func block(x, y, size int) [][2]int {
	coords := make([][2]int, 0, size*size)
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			coords = append(coords, [2]int{x + dx, y + dy})
		}
	}
	return coords
}
