package engine

import (
	"coffee-machine-demo/internal/types"
)

// Item 是优先级队列中的元素，包装了 Order
type Item struct {
	Order *types.Order // 实际的订单数据
	seq   uint64       // 入队顺序，同优先级时先到先得
	index int          // 元素在堆中的索引
}

// PriorityQueue 实现了 heap.Interface 接口
type PriorityQueue []*Item

func (pq PriorityQueue) Len() int { return len(pq) }

// Less 高优先级先出，同优先级按入队顺序
func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].Order.Priority != pq[j].Order.Priority {
		return pq[i].Order.Priority > pq[j].Order.Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*Item)
	item.index = n
	*pq = append(*pq, item)
}

// Pop 从队列中移除并返回优先级最高的元素
func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // 避免内存泄漏
	item.index = -1
	*pq = old[0 : n-1]
	return item
}
