package sim

// TimerItem обертка для отложенного вызова в очереди приоритетов
type TimerItem struct {
	Fn    func()
	Due   int    // Тик, на котором вызвать. Чем меньше, тем раньше.
	Order uint64 // Порядок постановки: при равном Due сохраняем FIFO
	Index int    // Индекс в куче
}

// TimerQueue реализует heap.Interface и хранит TimerItems
type TimerQueue []*TimerItem

func (pq TimerQueue) Len() int { return len(pq) }

func (pq TimerQueue) Less(i, j int) bool {
	// MinHeap по тику, внутри тика - по порядку постановки
	if pq[i].Due != pq[j].Due {
		return pq[i].Due < pq[j].Due
	}
	return pq[i].Order < pq[j].Order
}

func (pq TimerQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *TimerQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*TimerItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *TimerQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // избегаем утечки памяти
	item.Index = -1 // для безопасности
	*pq = old[0 : n-1]
	return item
}

// Peek возвращает ближайший таймер без извлечения.
func (pq TimerQueue) Peek() *TimerItem {
	if len(pq) == 0 {
		return nil
	}
	return pq[0]
}
