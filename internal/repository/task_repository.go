package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/brokenfulcrum/elixr-task-service/internal/model"
	"gorm.io/gorm"
)

// ParentPath 由用户 ID 推导父级作用域路径
// 推导是确定性的,任务 ID 只需在该作用域内唯一
func ParentPath(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("cannot derive parent path: empty user ID")
	}
	if strings.Contains(userID, "/") {
		return "", fmt.Errorf("cannot derive parent path: malformed user ID %q", userID)
	}
	return "users/" + userID, nil
}

// TaskRepository 任务仓储接口
// 所有操作都以父级作用域为根,不存在跨作用域的任务访问
type TaskRepository interface {
	Exists(ctx context.Context, parent, taskID string) (bool, error)
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, parent, taskID string) (*model.Task, error)
	FindByParent(ctx context.Context, parent string) ([]*model.Task, error)
	UpdateFields(ctx context.Context, parent, taskID string, fields []string, partial *model.Task) (*model.Task, error)
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Exists 检查任务是否存在
// 未找到不是错误,只有存储层故障才返回非空 error
func (r *taskRepository) Exists(ctx context.Context, parent, taskID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("parent = ? AND task_id = ?", parent, taskID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return count > 0, nil
}

// Create 插入任务
// 主键冲突返回 gorm.ErrDuplicatedKey,是并发创建同一任务 ID 的最后防线
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID 在父级作用域内根据任务 ID 查找任务
func (r *taskRepository) FindByID(ctx context.Context, parent, taskID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("parent = ? AND task_id = ?", parent, taskID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindByParent 查找父级作用域下的所有任务
func (r *taskRepository) FindByParent(ctx context.Context, parent string) ([]*model.Task, error) {
	var tasks []*model.Task
	err := r.db.WithContext(ctx).
		Where("parent = ?", parent).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// UpdateFields 按字段掩码更新任务
// 只写入掩码中列出的列(包括零值),其余列保持不变;这是完成写入
// 不会覆盖 created_by/object_path/created_at 等字段的机制保证
func (r *taskRepository) UpdateFields(ctx context.Context, parent, taskID string, fields []string, partial *model.Task) (*model.Task, error) {
	tx := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("parent = ? AND task_id = ?", parent, taskID).
		Select(fields).
		Updates(partial)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to update task fields: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, parent, taskID)
}
