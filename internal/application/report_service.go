package application

import (
	"fmt"
	"sort"

	"gatewarden/internal/repository"

	"github.com/xuri/excelize/v2"
)

type ReportService interface {
	ExportReport() ([]byte, error)
}

type ReportServiceImpl struct {
	links     LinkService
	whitelist repository.Whitelist
	rewards   repository.Rewards
	logger    Logger
}

func NewReportServiceImpl(links LinkService, whitelist repository.Whitelist,
	rewards repository.Rewards, logger Logger) *ReportServiceImpl {

	return &ReportServiceImpl{
		links:     links,
		whitelist: whitelist,
		rewards:   rewards,
		logger:    logger,
	}
}

// ExportReport renders the current registry state as a workbook with one
// sheet per concern: linked accounts, whitelist and reward totals.
func (s *ReportServiceImpl) ExportReport() ([]byte, error) {
	f := excelize.NewFile()

	accounts := s.links.Accounts()
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ActivityCount > accounts[j].ActivityCount
	})

	const accountsSheet = "Linked Accounts"
	f.NewSheet(accountsSheet)
	f.DeleteSheet("Sheet1")

	headers := []string{"Chat ID", "Game UUID", "Username", "Activity", "Last Updated"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(accountsSheet, cell, h)
	}
	row := 2
	for _, a := range accounts {
		f.SetCellValue(accountsSheet, fmt.Sprintf("A%d", row), a.ChatID)
		f.SetCellValue(accountsSheet, fmt.Sprintf("B%d", row), a.GameUUID.String())
		f.SetCellValue(accountsSheet, fmt.Sprintf("C%d", row), a.GameUsername)
		f.SetCellValue(accountsSheet, fmt.Sprintf("D%d", row), a.ActivityCount)
		f.SetCellValue(accountsSheet, fmt.Sprintf("E%d", row), a.LastUpdated.Format("2006-01-02 15:04"))
		row++
	}
	f.SetColWidth(accountsSheet, "A", "B", 24)
	f.SetColWidth(accountsSheet, "C", "E", 16)

	entries, err := s.whitelist.All()
	if err != nil {
		return nil, err
	}

	const whitelistSheet = "Whitelist"
	f.NewSheet(whitelistSheet)
	for i, h := range []string{"Chat ID", "Username", "Bedrock Username"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(whitelistSheet, cell, h)
	}
	row = 2
	for _, e := range entries {
		f.SetCellValue(whitelistSheet, fmt.Sprintf("A%d", row), e.ChatID)
		f.SetCellValue(whitelistSheet, fmt.Sprintf("B%d", row), e.GameUsername)
		f.SetCellValue(whitelistSheet, fmt.Sprintf("C%d", row), e.BedrockUsername)
		row++
	}
	f.SetColWidth(whitelistSheet, "A", "C", 20)

	records, err := s.rewards.AllRecords()
	if err != nil {
		return nil, err
	}

	const rewardsSheet = "Rewards"
	f.NewSheet(rewardsSheet)
	for i, h := range []string{"Chat ID", "Reward", "Count", "Last Issued"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(rewardsSheet, cell, h)
	}
	row = 2
	for _, r := range records {
		f.SetCellValue(rewardsSheet, fmt.Sprintf("A%d", row), r.ChatID)
		f.SetCellValue(rewardsSheet, fmt.Sprintf("B%d", row), r.RewardType)
		f.SetCellValue(rewardsSheet, fmt.Sprintf("C%d", row), r.RewardCount)
		f.SetCellValue(rewardsSheet, fmt.Sprintf("D%d", row), r.LastUpdated.Format("2006-01-02 15:04"))
		row++
	}
	f.SetColWidth(rewardsSheet, "A", "D", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
