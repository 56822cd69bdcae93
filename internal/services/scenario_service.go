// internal/services/scenario_service.go
package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneSplitter/internal/errors"
	"github.com/Corphon/SceneSplitter/internal/models"
	"github.com/Corphon/SceneSplitter/internal/storage"
	"github.com/Corphon/SceneSplitter/internal/utils"
)

const (
	scenariosDir     = "scenarios"
	scenarioFileExt  = ".json"
	untitledScenario = "제목 없음"
)

// ScenarioService 剧本的持久化与重新分割
type ScenarioService struct {
	store  *storage.FileStorage
	split  *SplitService
	locks  *LockManager
	logger *utils.Logger
}

// NewScenarioService 创建剧本服务
func NewScenarioService(store *storage.FileStorage, split *SplitService, locks *LockManager) *ScenarioService {
	return &ScenarioService{
		store:  store,
		split:  split,
		locks:  locks,
		logger: utils.GetLogger(),
	}
}

// CreateFromText 分割文本并保存为新剧本；分割失败时返回结果和错误，不保存
func (s *ScenarioService) CreateFromText(ctx context.Context, title, text string, opts models.SceneSplitOptions) (*models.Scenario, *models.SceneSplitResult, error) {
	result := s.split.SplitStory(ctx, text, opts)
	if !result.Success {
		return nil, result, result.Err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = untitledScenario
	}

	now := time.Now()
	scenario := &models.Scenario{
		ID:            uuid.New().String(),
		Title:         title,
		Scenes:        result.Scenes,
		SourceText:    text,
		SplitStrategy: result.SplitStrategy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.locks.ExecuteWithLock(scenario.ID, func() error {
		return s.save(scenario)
	})
	if err != nil {
		return nil, result, err
	}

	s.logger.Info("剧本已创建", map[string]interface{}{
		"scenario_id": scenario.ID,
		"scenes":      len(scenario.Scenes),
	})
	return scenario, result, nil
}

// GetScenario 读取剧本
func (s *ScenarioService) GetScenario(id string) (*models.Scenario, error) {
	if err := validateScenarioID(id); err != nil {
		return nil, err
	}

	var scenario *models.Scenario
	err := s.locks.ExecuteWithReadLock(id, func() error {
		var err error
		scenario, err = s.load(id)
		return err
	})
	return scenario, err
}

// ListScenarios 列出所有剧本，按更新时间倒序
func (s *ScenarioService) ListScenarios() ([]models.ScenarioMetadata, error) {
	files, err := s.store.ListFiles(scenariosDir, scenarioFileExt)
	if err != nil {
		return nil, apperrors.NewProcessingError("读取剧本列表失败", err)
	}

	list := make([]models.ScenarioMetadata, 0, len(files))
	for _, file := range files {
		id := strings.TrimSuffix(file, scenarioFileExt)
		scenario, err := s.GetScenario(id)
		if err != nil {
			s.logger.Warn("跳过无法读取的剧本", map[string]interface{}{
				"file": file,
				"err":  err.Error(),
			})
			continue
		}
		list = append(list, models.ScenarioMetadata{
			ID:         scenario.ID,
			Title:      scenario.Title,
			SceneCount: len(scenario.Scenes),
			UpdatedAt:  scenario.UpdatedAt,
		})
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

// DeleteScenario 删除剧本
func (s *ScenarioService) DeleteScenario(id string) error {
	if err := validateScenarioID(id); err != nil {
		return err
	}

	return s.locks.ExecuteWithLock(id, func() error {
		err := s.store.DeleteFile(scenariosDir, id+scenarioFileExt)
		if errors.Is(err, storage.ErrNotExist) {
			return apperrors.NewNotFoundError("剧本不存在", err)
		}
		if err != nil {
			return apperrors.NewProcessingError("删除剧本失败", err)
		}
		return nil
	})
}

// ResplitScenario 按新的目标数量重新分割并保存；失败时剧本保持不变
func (s *ScenarioService) ResplitScenario(ctx context.Context, id string, newTargetCount int, opts models.SceneSplitOptions) (*models.Scenario, *models.SceneSplitResult, error) {
	if err := validateScenarioID(id); err != nil {
		return nil, nil, err
	}

	var (
		scenario *models.Scenario
		result   *models.SceneSplitResult
	)
	err := s.locks.ExecuteWithLock(id, func() error {
		var err error
		scenario, err = s.load(id)
		if err != nil {
			return err
		}

		result = s.split.Resplit(ctx, scenario, newTargetCount, opts)
		if !result.Success {
			return result.Err
		}

		scenario.Scenes = result.Scenes
		scenario.SplitStrategy = result.SplitStrategy
		scenario.UpdatedAt = time.Now()
		return s.save(scenario)
	})
	return scenario, result, err
}

func (s *ScenarioService) load(id string) (*models.Scenario, error) {
	var scenario models.Scenario
	if err := s.store.LoadJSONFile(scenariosDir, id+scenarioFileExt, &scenario); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("剧本不存在", err)
		}
		return nil, apperrors.NewProcessingError("读取剧本失败", err)
	}
	return &scenario, nil
}

func (s *ScenarioService) save(scenario *models.Scenario) error {
	if err := s.store.SaveJSONFile(scenariosDir, scenario.ID+scenarioFileExt, scenario); err != nil {
		return apperrors.NewProcessingError("保存剧本失败", err)
	}
	return nil
}

// validateScenarioID 剧本 ID 必须是 UUID，防止路径穿越
func validateScenarioID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("无效的剧本ID", err)
	}
	return nil
}
