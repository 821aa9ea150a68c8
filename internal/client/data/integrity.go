package data

import (
	"context"
	"fmt"
)

// IntegrityReport итог проверки локальных записей при загрузке
type IntegrityReport struct {
	Unrepairable []string // ключи записей, которые не удалось восстановить
	Checked      int
	Invalid      int
	Repaired     int
}

// VerifyAndRepair проверяет все сохраненные записи (включая tombstone).
// Поврежденная запись восстанавливается из истории и перезаписывается;
// запись, которую восстановить нельзя, остается как есть и попадает в отчет.
// Версии всех записей передаются трекеру, чтобы новые снимки продолжали нумерацию.
func (s *Service) VerifyAndRepair(ctx context.Context) (*IntegrityReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.records.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	report := &IntegrityReport{Unrepairable: []string{}}
	for _, record := range records {
		report.Checked++

		result := s.validator.Validate(record)
		if result.IsValid {
			s.tracker.ObserveVersion(record.ID, record.ResourceType, record.Version)
			continue
		}
		report.Invalid++

		s.logger.Warn("Record failed validation",
			"resource", record.Key(),
			"errors", fmt.Sprint(result.Errors))

		repaired, err := s.validator.Repair(record)
		if err == nil {
			if check := s.validator.Validate(repaired); !check.IsValid {
				err = fmt.Errorf("repaired record is still invalid: %v", check.Errors)
			}
		}
		if err != nil {
			s.logger.Error("Failed to repair record", "resource", record.Key(), "error", err)
			report.Unrepairable = append(report.Unrepairable, record.Key())
			s.tracker.ObserveVersion(record.ID, record.ResourceType, record.Version)
			continue
		}

		if err := s.records.SaveRecord(ctx, repaired); err != nil {
			return report, fmt.Errorf("failed to save repaired record %s: %w", record.Key(), err)
		}
		report.Repaired++

		// Старшая версия сохраняется: снимки не должны повторять уже выданные номера
		s.tracker.ObserveVersion(record.ID, record.ResourceType, max(record.Version, repaired.Version))

		s.logger.Info("Record repaired",
			"resource", record.Key(),
			"version", repaired.Version)
	}

	return report, nil
}
