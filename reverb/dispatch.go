package reverb

// BlockSize is the fixed chunk length the engine processes internally.
const BlockSize = 256

const (
	hallEarlyBlend = 0.3
	hallLateBlend  = 0.7
)

// scratch holds the per-chunk early and late buffers.
type scratch struct {
	earlyL, earlyR [BlockSize]float32
	lateL, lateR   [BlockSize]float32
}

func (s *scratch) clear() {
	clear(s.earlyL[:])
	clear(s.earlyR[:])
	clear(s.lateL[:])
	clear(s.lateR[:])
}

// path renders one chunk of the active variant into the scratch buffers.
// Every implementation writes all n frames of both the early and late
// buffers.
type path interface {
	render(inL, inR []float32, s *scratch)
}

type roomPath struct {
	early EarlyProcessor
	late  LateProcessor
}

func (p roomPath) render(inL, inR []float32, s *scratch) {
	n := len(inL)
	p.early.ProcessBlock(inL, inR, s.earlyL[:n], s.earlyR[:n])
	p.late.ProcessBlock(inL, inR, s.lateL[:n], s.lateR[:n])
}

// hallPath renders early and late layers and folds them into a single
// early signal.
type hallPath struct {
	early EarlyProcessor
	late  LateProcessor
}

func (p hallPath) render(inL, inR []float32, s *scratch) {
	n := len(inL)
	p.early.ProcessBlock(inL, inR, s.earlyL[:n], s.earlyR[:n])
	p.late.ProcessBlock(inL, inR, s.lateL[:n], s.lateR[:n])
	for i := 0; i < n; i++ {
		s.earlyL[i] = hallEarlyBlend*s.earlyL[i] + hallLateBlend*s.lateL[i]
		s.earlyR[i] = hallEarlyBlend*s.earlyR[i] + hallLateBlend*s.lateR[i]
	}
	clear(s.lateL[:n])
	clear(s.lateR[:n])
}

type platePath struct {
	plate PlateProcessor
}

func (p platePath) render(inL, inR []float32, s *scratch) {
	n := len(inL)
	p.plate.ProcessBlock(inL, inR, s.earlyL[:n], s.earlyR[:n])
	clear(s.lateL[:n])
	clear(s.lateR[:n])
}

type earlyPath struct {
	early EarlyProcessor
}

func (p earlyPath) render(inL, inR []float32, s *scratch) {
	n := len(inL)
	p.early.ProcessBlock(inL, inR, s.earlyL[:n], s.earlyR[:n])
	clear(s.lateL[:n])
	clear(s.lateR[:n])
}

// paths holds one prebuilt path per variant so selection never allocates.
type paths struct {
	room  roomPath
	hall  hallPath
	plate platePath
	early earlyPath
}

func newPaths(b *Bank) paths {
	return paths{
		room:  roomPath{early: b.RoomEarly, late: b.RoomLate},
		hall:  hallPath{early: b.HallEarly, late: b.HallLate},
		plate: platePath{plate: b.Plate},
		early: earlyPath{early: b.EarlyOnly},
	}
}

func (ps *paths) forVariant(v Variant) path {
	switch v {
	case VariantHall:
		return &ps.hall
	case VariantPlate:
		return &ps.plate
	case VariantEarly:
		return &ps.early
	default:
		return &ps.room
	}
}
