package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"weekly-planner/internal/planner"
	"weekly-planner/internal/repository"
	"weekly-planner/internal/weekgrid"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSchedule 导出周计划为 Excel
	ExportSchedule(ctx context.Context, id string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const (
	gridSheet         = "Weekly Schedule"
	distributionSheet = "Distribution"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ═══════════════════════════════════════════════════════════
// ExportSchedule 导出周计划为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Weekly Schedule"：行为小时，列为星期，单元格为活动名称并以活动颜色填充
//   - Sheet "Distribution"：活动 / 时间格数 / 占比
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportSchedule(ctx context.Context, id string) (*bytes.Buffer, string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", ErrScheduleNotFound
	}

	// 1. 查询周计划
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrScheduleNotFound
		}
		s.logger.Error("查询周计划失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, "", fmt.Errorf("查询周计划失败: %w", err)
	}

	// 2. 还原分配表（非法时间格不参与导出）
	table := planner.NewTable()
	for _, ts := range schedule.TimeSlots {
		key, err := weekgrid.NewSlotKey(ts.Day, ts.Hour)
		if err != nil {
			continue
		}
		_ = table.Place(key, planner.Snapshot{Name: ts.Activity.Name, Color: ts.Activity.Color})
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(gridSheet)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetColWidth(gridSheet, "A", "A", 10)
	f.SetColWidth(gridSheet, "B", colName(len(weekgrid.Days)), 16)

	f.SetCellValue(gridSheet, "A1", "Time")
	for i, d := range weekgrid.Days {
		f.SetCellValue(gridSheet, cell(colName(1+i), 1), string(d))
	}
	f.SetCellStyle(gridSheet, "A1", cell(colName(len(weekgrid.Days)), 1), headerStyle)

	// 同色单元格共用一个样式
	fills := make(map[string]int)
	for r, h := range weekgrid.Hours {
		row := r + 2
		f.SetCellValue(gridSheet, cell("A", row), string(h))
		f.SetCellStyle(gridSheet, cell("A", row), cell("A", row), headerStyle)

		for c, d := range weekgrid.Days {
			snap, ok := table.Get(weekgrid.MustSlotKey(d, h))
			if !ok {
				continue
			}
			ref := cell(colName(1+c), row)
			f.SetCellValue(gridSheet, ref, snap.Name)
			if !hexColor.MatchString(snap.Color) {
				continue
			}
			style, ok := fills[snap.Color]
			if !ok {
				style, err = f.NewStyle(&excelize.Style{
					Font:      &excelize.Font{Color: "#FFFFFF", Bold: true},
					Fill:      excelize.Fill{Type: "pattern", Color: []string{snap.Color}, Pattern: 1},
					Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
				})
				if err != nil {
					s.logger.Warn("创建单元格样式失败", zap.String("color", snap.Color), zap.Error(err))
					continue
				}
				fills[snap.Color] = style
			}
			f.SetCellStyle(gridSheet, ref, ref, style)
		}
	}

	// 4. 时间分布 Sheet
	dist := planner.ComputeDistribution(table)
	f.NewSheet(distributionSheet)
	f.SetColWidth(distributionSheet, "A", "A", 20)
	f.SetCellValue(distributionSheet, "A1", "Activity")
	f.SetCellValue(distributionSheet, "B1", "Slots")
	f.SetCellValue(distributionSheet, "C1", "Percentage")
	f.SetCellStyle(distributionSheet, "A1", "C1", headerStyle)
	for i, a := range dist.PerActivity {
		row := i + 2
		f.SetCellValue(distributionSheet, cell("A", row), a.Name)
		f.SetCellValue(distributionSheet, cell("B", row), a.Count)
		f.SetCellValue(distributionSheet, cell("C", row), fmt.Sprintf("%d%%", a.Percentage))
	}
	total := len(dist.PerActivity) + 2
	f.SetCellValue(distributionSheet, cell("A", total), "Total")
	f.SetCellValue(distributionSheet, cell("B", total), dist.TotalSlots)

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("%s.xlsx", schedule.Title)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
