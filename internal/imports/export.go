package imports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Imports"

var exportHeaders = []string{
	"ID",
	"Fichier",
	"Modèle de facture",
	"Nom",
	"Prénom",
	"Adresse",
	"Email",
	"Téléphone",
	"N° commande",
	"Référence produit",
	"Modèle",
	"Marque",
	"Couleur armature",
	"Couleur toile",
	"Moteur",
	"Capteur vent",
	"Prix unitaire",
	"TVA",
	"Frais de port",
	"Montant global",
	"Date d'achat",
	"Fin de garantie",
}

// ExportXLSX returns a workbook with one row per import, newest first.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	imps, err := s.ListImports()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for i, imp := range imps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}

		rec := imp.Record
		write(1, imp.ID)
		write(2, imp.Filename)
		write(3, imp.Template)
		write(4, rec.LastName)
		write(5, rec.FirstName)
		write(6, rec.Address)
		write(7, rec.Email)
		write(8, rec.Phone)
		write(9, rec.OrderNumber)
		write(10, rec.ProductReference)
		write(11, rec.ProductModel)
		write(12, rec.ProductBrand)
		write(13, rec.FrameColor)
		write(14, rec.FabricColor)
		write(15, rec.Motor)
		write(16, rec.WindSensor != nil && *rec.WindSensor)
		write(17, amountCell(rec.UnitPrice))
		write(18, amountCell(rec.VAT))
		write(19, amountCell(rec.Shipping))
		write(20, amountCell(rec.Total))
		write(21, dateCell(rec.PurchaseDate))
		write(22, dateCell(imp.WarrantyEnd))
	}

	_ = f.SetColWidth(exportSheet, "A", "B", 38)
	_ = f.SetColWidth(exportSheet, "C", "E", 16)
	_ = f.SetColWidth(exportSheet, "F", "F", 48)
	_ = f.SetColWidth(exportSheet, "G", "O", 20)
	_ = f.SetColWidth(exportSheet, "Q", "V", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing xlsx: %w", err)
	}

	slog.Info("Exported imports",
		"rows", len(imps),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func amountCell(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
