package crdt

// VectorClock представляет векторные часы: счетчик событий для каждого устройства.
// Позволяет определять причинно-следственную связь между изменениями
// без глобальных часов. Значение VectorClock не потокобезопасно,
// синхронизацию обеспечивает владелец (ChangeTracker).
type VectorClock map[string]int64

// Ordering результат сравнения двух векторных часов
type Ordering int

const (
	// Equal часы идентичны
	Equal Ordering = iota
	// Before текущие часы предшествуют другим (other видел все наши события)
	Before
	// After текущие часы следуют за другими
	After
	// Concurrent изменения конкурентные, ни одно не видело другое
	Concurrent
)

// String возвращает читаемое имя результата сравнения
func (o Ordering) String() string {
	switch o {
	case Equal:
		return "equal"
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "concurrent"
	}
}

// NewVectorClock создает пустые векторные часы
func NewVectorClock() VectorClock {
	return make(VectorClock)
}

// Increment увеличивает счетчик устройства ровно на 1 и возвращает новое значение.
// Используется при создании нового локального события.
func (vc VectorClock) Increment(deviceID string) int64 {
	vc[deviceID]++
	return vc[deviceID]
}

// Get возвращает значение счетчика устройства (0, если устройство неизвестно)
func (vc VectorClock) Get(deviceID string) int64 {
	return vc[deviceID]
}

// Merge объединяет другие часы с текущими, беря максимум по каждому устройству.
// Значения никогда не уменьшаются.
func (vc VectorClock) Merge(other VectorClock) {
	for deviceID, counter := range other {
		if counter > vc[deviceID] {
			vc[deviceID] = counter
		}
	}
}

// Compare сравнивает часы с другими и возвращает частичный порядок.
// Отсутствующее устройство эквивалентно счетчику 0.
func (vc VectorClock) Compare(other VectorClock) Ordering {
	less, greater := false, false

	for deviceID, counter := range vc {
		otherCounter := other[deviceID]
		if counter < otherCounter {
			less = true
		} else if counter > otherCounter {
			greater = true
		}
	}
	for deviceID, otherCounter := range other {
		if _, ok := vc[deviceID]; ok {
			continue
		}
		if otherCounter > 0 {
			less = true
		}
	}

	switch {
	case less && greater:
		return Concurrent
	case less:
		return Before
	case greater:
		return After
	default:
		return Equal
	}
}

// Dominates возвращает true, если часы покрывают другие (все счетчики >=)
func (vc VectorClock) Dominates(other VectorClock) bool {
	ord := vc.Compare(other)
	return ord == After || ord == Equal
}

// Clone создает независимую копию часов
func (vc VectorClock) Clone() VectorClock {
	clone := make(VectorClock, len(vc))
	for deviceID, counter := range vc {
		clone[deviceID] = counter
	}
	return clone
}
