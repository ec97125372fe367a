// Package keygen 提供表对象保存新实体时使用的主键生成器。
package keygen

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gorel/data/orm"
	"gorel/errors"
)

const (
	// 起始时间戳 (2023-01-01 00:00:00 UTC)
	epoch int64 = 1672531200000

	workerIDBits     = 5
	datacenterIDBits = 5
	sequenceBits     = 12

	maxWorkerID     = -1 ^ (-1 << workerIDBits)     // 31
	maxDatacenterID = -1 ^ (-1 << datacenterIDBits) // 31
	maxSequence     = -1 ^ (-1 << sequenceBits)     // 4095

	workerIDShift      = sequenceBits
	datacenterIDShift  = sequenceBits + workerIDBits
	timestampLeftShift = sequenceBits + workerIDBits + datacenterIDBits
)

// Snowflake 雪花算法主键生成器，生成 int64 主键
type Snowflake struct {
	mux           sync.Mutex
	datacenterID  int64
	workerID      int64
	sequence      int64
	lastTimestamp int64
	now           func() int64
}

var _ orm.IKeyGenerator = (*Snowflake)(nil)

// NewSnowflake 创建雪花生成器
func NewSnowflake(datacenterID, workerID int64) (*Snowflake, error) {
	if datacenterID < 0 || datacenterID > maxDatacenterID {
		return nil, errors.NewErrorf(errors.ErrCodeInvalidInput, "keygen: datacenter ID %d out of range", datacenterID)
	}
	if workerID < 0 || workerID > maxWorkerID {
		return nil, errors.NewErrorf(errors.ErrCodeInvalidInput, "keygen: worker ID %d out of range", workerID)
	}
	return &Snowflake{
		datacenterID:  datacenterID,
		workerID:      workerID,
		lastTimestamp: -1,
		now:           func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// NextID 生成下一个ID
func (g *Snowflake) NextID() (int64, error) {
	g.mux.Lock()
	defer g.mux.Unlock()

	now := g.now()
	if now < g.lastTimestamp {
		return 0, errors.NewError(errors.ErrCodeInternal, "keygen: clock moved backwards, refusing to generate id")
	}

	if now == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for now <= g.lastTimestamp {
				now = g.now()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTimestamp = now

	return ((now - epoch) << timestampLeftShift) |
		(g.datacenterID << datacenterIDShift) |
		(g.workerID << workerIDShift) |
		g.sequence, nil
}

// NextKey 实现 orm.IKeyGenerator
func (g *Snowflake) NextKey() (any, error) {
	return g.NextID()
}

// UUID 生成 v4 UUID 字符串主键
type UUID struct{}

var _ orm.IKeyGenerator = UUID{}

// NextKey 实现 orm.IKeyGenerator
func (UUID) NextKey() (any, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

// New 按配置名创建生成器，大小写不敏感：
//
//	""、auto    nil，由数据库自增
//	uuid        UUID
//	snowflake   Snowflake(1, 1)
//	snowflake:<datacenter>:<worker>
func New(name string) (orm.IKeyGenerator, error) {
	kind, params, _ := strings.Cut(strings.ToLower(strings.TrimSpace(name)), ":")
	switch kind {
	case "", "auto", "autoincrement":
		return nil, nil
	case "uuid":
		return UUID{}, nil
	case "snowflake":
		if params == "" {
			return NewSnowflake(1, 1)
		}
		dc, worker, ok := strings.Cut(params, ":")
		dcID, err1 := strconv.ParseInt(dc, 10, 64)
		workerID, err2 := strconv.ParseInt(worker, 10, 64)
		if !ok || err1 != nil || err2 != nil {
			return nil, orm.ConfigurationErrorf("keygen: malformed snowflake spec %q, want snowflake:<datacenter>:<worker>", name)
		}
		return NewSnowflake(dcID, workerID)
	default:
		return nil, orm.ConfigurationErrorf("keygen: unknown key generator %q", name)
	}
}
