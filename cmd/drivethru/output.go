package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/domain"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/eval"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

func printMenu(cat *catalog.Catalog) {
	fmt.Printf("%s v%s (%s)\n", cat.MenuName, cat.Version, cat.MenuID)
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Category", "Size", "Modifiers"})
	for _, it := range cat.Items() {
		mods := make([]string, 0, len(it.AvailableModifiers))
		for _, m := range it.AvailableModifiers {
			mods = append(mods, m.Name)
		}
		tw.AppendRow(table.Row{it.ID, it.Name, it.Category, it.DefaultSize, strings.Join(mods, ", ")})
	}
	tw.Render()
}

func printOrder(l order.Ledger) {
	printOrderTo(os.Stdout, l)
}

func printOrderTo(out io.Writer, l order.Ledger) {
	if len(l.Items) == 0 {
		fmt.Fprintln(out, "Order is empty.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetTitle("Order " + l.OrderID)
	tw.AppendHeader(table.Row{"Qty", "Item", "Size", "Modifiers"})
	for _, li := range l.Items {
		mods := make([]string, 0, len(li.Modifiers))
		for _, m := range li.Modifiers {
			mods = append(mods, m.Name)
		}
		tw.AppendRow(table.Row{li.Quantity, li.Name, li.Size, strings.Join(mods, ", ")})
	}
	tw.AppendFooter(table.Row{l.ItemCount(), "items", "", ""})
	tw.Render()
}

func printSessions(items []domain.Session) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Menu", "Finalized", "Lines", "Items", "Updated"})
	for _, s := range items {
		tw.AppendRow(table.Row{s.ID, s.MenuID, s.Finalized, s.LineCount, s.ItemCount, s.UpdatedAt})
	}
	tw.Render()
}

func printReport(r eval.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("Eval " + r.Dataset)
	tw.AppendHeader(table.Row{"Case", "Category", "Order", "Tools", "On menu", "Error"})
	for _, res := range r.Results {
		tw.AppendRow(table.Row{
			res.Case.ID,
			res.Case.Category,
			fmt.Sprintf("%.3f", res.Score(eval.ScoreOrderCorrectness)),
			fmt.Sprintf("%.3f", res.Score(eval.ScoreToolCallAccuracy)),
			fmt.Sprintf("%.3f", res.Score(eval.ScoreNoHallucinatedItems)),
			res.Err,
		})
	}
	tw.AppendFooter(table.Row{"average", "", fmt.Sprintf("%.3f", r.Average.Value), "", "", r.Average.Comment})
	tw.Render()
}

func printJSONOrYAML(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
