package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	domaininventory "filterpanel/internal/domain/inventory"
	"filterpanel/internal/errs"
	"filterpanel/internal/ports"
	"filterpanel/internal/usecase/inventory"
)

const cliTimeLayout = "2006-01-02 15:04"

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	activeStyle   = cellStyle.Foreground(lipgloss.Color("10"))
	replacedStyle = cellStyle.Foreground(lipgloss.Color("8"))
	labelStyle    = lipgloss.NewStyle().Bold(true).Width(14)
)

var fabricsCmd = &cobra.Command{
	Use:   "fabrics",
	Short: "List every fabric installation, most recent first",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		items, err := deps.Service.ListFabrics(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "list fabrics")
		}
		return writeOutput(cmd.OutOrStdout(), renderFabrics(items))
	}),
}

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List every reported anomaly, most recent first",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		items, err := deps.Service.ListAnomalies(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "list anomalies")
		}
		return writeOutput(cmd.OutOrStdout(), renderAnomalies(items))
	}),
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count fabrics in operation, replaced fabrics and anomalies",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		summary, err := deps.Service.Summary(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "summarize inventory")
		}
		return writeOutput(cmd.OutOrStdout(), renderSummary(summary))
	}),
}

func init() {
	rootCmd.AddCommand(fabricsCmd, anomaliesCmd, summaryCmd)
}

func renderFabrics(items []ports.Fabric) string {
	if len(items) == 0 {
		return "no fabrics installed"
	}

	rows := make([][]string, 0, len(items))
	for _, f := range items {
		rows = append(rows, []string{
			f.Code,
			f.Position().String(),
			string(f.Status),
			f.InstalledAt.Format(cliTimeLayout),
			formatOptionalTime(f.RemovedAt),
			f.Installer,
			derefOrDash(f.Notes),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CODIGO", "POSICAO", "STATUS", "INSTALADO", "REMOVIDO", "INSTALADOR", "OBS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rows) {
				if rows[row][2] == string(domaininventory.StatusInOperation) {
					return activeStyle
				}
				return replacedStyle
			}
			return cellStyle
		}).
		Render()
}

func renderAnomalies(items []ports.Anomaly) string {
	if len(items) == 0 {
		return "no anomalies reported"
	}

	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			strconv.FormatUint(a.ID, 10),
			a.FabricCode,
			a.ObservedAt.Format(cliTimeLayout),
			a.Quadrant,
			a.Condition,
			a.Observer,
			derefOrDash(a.Notes),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TECIDO", "DATA", "QUADRANTE", "CONDICAO", "RESPONSAVEL", "OBS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

func renderSummary(s inventory.Summary) string {
	lines := []string{
		labelStyle.Render("em operacao") + strconv.FormatInt(s.InOperation, 10),
		labelStyle.Render("substituidos") + strconv.FormatInt(s.Replaced, 10),
		labelStyle.Render("anomalias") + strconv.FormatInt(s.Anomalies, 10),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(cliTimeLayout)
}

func derefOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func writeOutput(w io.Writer, out string) error {
	if _, err := fmt.Fprintln(w, out); err != nil {
		return errs.Wrap(err, "write output")
	}
	return nil
}
