package persistence

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"

	"coffee-machine-demo/internal/types"

	"github.com/pkg/errors"
)

const (
	entryOrder    = "ORDER"
	entryComplete = "COMPLETE"
)

// LogEntry 代表订单日志中的一条记录
type LogEntry struct {
	Seq     uint64       `json:"seq"`                // 写入顺序，恢复时保持原有顺序
	Type    string       `json:"type"`               // ORDER (新订单) 或 COMPLETE (订单结束)
	Order   *types.Order `json:"order,omitempty"`    // 新订单的完整数据
	OrderID string       `json:"order_id,omitempty"` // 结束的订单 ID
}

// WAL (Write-Ahead Log) 持久化已接受但未完成的订单
// 机器状态 (水箱、豆仓、通电、故障) 不写入日志
type WAL struct {
	file *os.File
	mu   sync.Mutex
	seq  uint64
}

// NewWAL 创建或打开一个订单日志文件
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open order journal %s", path)
	}
	return &WAL{file: file}, nil
}

func (w *WAL) write(entry LogEntry) error {
	w.seq++
	entry.Seq = w.seq
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "encode journal entry")
	}
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "write journal entry")
	}
	// 确保数据被刷新到磁盘，防止数据丢失
	return w.file.Sync()
}

// Append 将一份新订单写入日志
func (w *WAL) Append(order *types.Order) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(LogEntry{Type: entryOrder, Order: order})
}

// Complete 在日志中标记一份订单已结束 (无论成功或失败)
func (w *WAL) Complete(orderID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.write(LogEntry{Type: entryComplete, OrderID: orderID})
}

// Recover 读取日志，按写入顺序返回所有未结束的订单
func (w *WAL) Recover() ([]*types.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seek journal")
	}

	pending := make(map[string]LogEntry)
	completed := make(map[string]bool)

	scanner := bufio.NewScanner(w.file)
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// 忽略损坏的行
			continue
		}
		if entry.Seq > w.seq {
			w.seq = entry.Seq
		}

		switch entry.Type {
		case entryOrder:
			if entry.Order != nil {
				pending[entry.Order.ID] = entry
			}
		case entryComplete:
			completed[entry.OrderID] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan journal")
	}

	var entries []LogEntry
	for id, entry := range pending {
		if !completed[id] {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	recovered := make([]*types.Order, 0, len(entries))
	for _, entry := range entries {
		recovered = append(recovered, entry.Order)
	}

	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return nil, errors.Wrap(err, "seek journal")
	}
	return recovered, nil
}

// Close 关闭日志文件
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
