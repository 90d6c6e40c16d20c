package action

import (
	"context"
	"encoding/json"

	"github.com/Zereker/cvstore/internal/domain"
)

// publish 发布文档事件，key 为 FileID 保证同一文档的事件有序。
// 事件是通知性质的，失败只记录日志。
func (f *Files) publish(ctx context.Context, events ...domain.DocumentEvent) {
	if f.queue == nil || f.cfg.EventsTopic == "" {
		return
	}

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			f.logger.Warn("failed to marshal event", "type", ev.Type, "file_id", ev.FileID, "error", err)
			continue
		}

		if err := f.queue.Publish(ctx, f.cfg.EventsTopic, ev.FileID, data); err != nil {
			f.logger.Warn("failed to publish event", "type", ev.Type, "file_id", ev.FileID, "error", err)
		}
	}
}
