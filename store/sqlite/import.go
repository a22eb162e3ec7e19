package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/warp/cost-engine/generic"
)

// Import writes a snapshot in one transaction and registers the project
// version in base_datos_sgi. Existing rows are kept; importing the same
// snapshot twice duplicates its series rows, which the loader then folds.
func (s *Store) Import(ctx context.Context, snap generic.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var coef any
	if snap.CoefK > 0 {
		coef = snap.CoefK
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO base_datos_sgi (cod_obra, version, origen, coef_k) VALUES (?, ?, ?, ?)
		ON CONFLICT (cod_obra, version, origen) DO UPDATE SET coef_k = COALESCE(excluded.coef_k, coef_k)`,
		snap.Project, snap.Version, OriginCost, coef); err != nil {
		return fmt.Errorf("register project: %w", err)
	}

	if err := insertItems(ctx, tx, snap); err != nil {
		return err
	}
	for _, part := range []struct {
		ds   generic.Dataset
		rows []generic.SeriesRow
	}{{generic.DatasetContract, snap.Contract}, {generic.DatasetCost, snap.Cost}} {
		if err := insertSeries(ctx, tx, snap.Project, part.ds, part.rows); err != nil {
			return err
		}
	}
	if err := insertSchedule(ctx, tx, snap.Project, snap.Schedule); err != nil {
		return err
	}

	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sqlx.Tx, snap generic.Snapshot) error {
	const q = `
		INSERT INTO lineas_analisis (indice, cod_obra, version, Guid_SGI, codigo, codigo2, CodSup,
			Nivel, nat, ud, resumen, UserText, UserNumber, clave_compuesta, plan_guid)
		VALUES (:indice, :cod_obra, :version, :Guid_SGI, :codigo, :codigo2, :CodSup,
			:Nivel, :nat, :ud, :resumen, :UserText, :UserNumber, :clave_compuesta, :plan_guid)`
	for _, r := range snap.Items {
		row := itemRow{
			Indice:       r.Index,
			Project:      snap.Project,
			Version:      snap.Version,
			GUID:         r.GUID,
			Code:         r.Code,
			AltCode:      r.AltCode,
			ParentCode:   r.ParentCode,
			Level:        r.Level,
			Kind:         r.Kind,
			Unit:         r.Unit,
			Summary:      r.Summary,
			UserText:     r.UserText,
			CompositeKey: r.CompositeKey,
			ScheduleRef:  r.ScheduleRef,
		}
		if r.Classification.Valid {
			row.Classification.String = r.Classification.Decimal.String()
			row.Classification.Valid = true
		}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return fmt.Errorf("insert item %s: %w", r.GUID, err)
		}
	}
	return nil
}

func insertSeries(ctx context.Context, tx *sqlx.Tx, project string, ds generic.Dataset, rows []generic.SeriesRow) error {
	table, err := seriesTable(ds)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO ` + table + ` (cod_obra, version, sgi_guid, clave_compuesta, tipo_informacion, tipo,
			canpres, cantdescomp, pres, imppres)
		VALUES (:cod_obra, :version, :sgi_guid, :clave_compuesta, :tipo_informacion, :tipo,
			:canpres, :cantdescomp, :pres, :imppres)`
	for _, r := range rows {
		row := seriesRow{
			Project:      project,
			Version:      r.Version,
			GUID:         r.GUID,
			CompositeKey: r.CompositeKey,
			Kind:         r.Kind,
			LineType:     r.LineType,
		}
		row.Quantity.String, row.Quantity.Valid = r.Quantity.String(), true
		row.QuantityDecomposed.String, row.QuantityDecomposed.Valid = r.QuantityDecomposed.String(), true
		row.Price.String, row.Price.Valid = r.Price.String(), true
		row.Amount.String, row.Amount.Valid = r.Amount.String(), true
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
	}
	return nil
}

func insertSchedule(ctx context.Context, tx *sqlx.Tx, project string, rows []generic.ScheduleRow) error {
	const q = `
		INSERT INTO lineas_planin (cod_obra, plan_guid, comienzo, fin, duracion)
		VALUES (:cod_obra, :plan_guid, :comienzo, :fin, :duracion)`
	for _, r := range rows {
		row := scheduleRow{Project: project, ScheduleRef: r.ScheduleRef}
		row.Start.String, row.Start.Valid = r.Start, r.Start != ""
		row.End.String, row.End.Valid = r.End, r.End != ""
		row.Duration.String, row.Duration.Valid = r.Duration.String(), true
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return fmt.Errorf("insert schedule row: %w", err)
		}
	}
	return nil
}

// Reset drops every row in every table.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"lineas_planin", "lineas_coste", "lineas_contrato", "lineas_analisis", "base_datos_sgi"}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}
	return tx.Commit()
}
