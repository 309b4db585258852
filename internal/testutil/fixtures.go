package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Names of the measures defined by the sample documents.
var SampleMeasures = []string{"Total Sales", "Margin", "Unused Measure", "Colour"}

// SampleUnusedMeasures is what the sample report leaves unused among
// SampleMeasures.
var SampleUnusedMeasures = []string{"Unused Measure"}

// SampleTerminalMeasures are the unreferenced terminal measures of
// SampleDependencies.
var SampleTerminalMeasures = []string{"Colour", "Unused Measure"}

// SampleDependencies is a measure dependency export matching SampleModel.
// The Margin DAX stores its line break as a literal \n.
const SampleDependencies = "Measure\tExpression\tParents\tChildren\tDisplay Folder\tColumns\n" +
	"Total Sales\tSUM(Sales[Amount])\t\tMargin\t\tAmount\n" +
	"Margin\tVAR c = SUM(Sales[Cost])\\nRETURN [Total Sales] - c\tTotal Sales\tColour\t\tCost\n" +
	"Unused Measure\tCOUNTROWS(Sales)\t\t\t\t\n" +
	"Colour\tIF([Margin] > 0, \"Green\", \"Red\")\tMargin\t\t\t\n"

// SampleModel returns a model document with two tables, four measures, one
// M partition and one shared M expression.
func SampleModel() []byte {
	return mustJSON(map[string]any{
		"name": "SalesModel",
		"model": map[string]any{
			"tables": []any{
				map[string]any{
					"name": "Sales",
					"columns": []any{
						map[string]any{"name": "Region"},
						map[string]any{"name": "Amount"},
						map[string]any{"name": "Cost"},
					},
					"measures": []any{
						map[string]any{"name": "Total Sales", "expression": "SUM(Sales[Amount])"},
						map[string]any{"name": "Margin", "expression": []any{"VAR c = SUM(Sales[Cost])", "RETURN [Total Sales] - c"}},
						map[string]any{"name": "Unused Measure", "expression": "COUNTROWS(Sales)"},
						map[string]any{"name": "Colour", "expression": `IF([Margin] > 0, "Green", "Red")`},
					},
					"partitions": []any{
						map[string]any{
							"name": "Sales",
							"source": map[string]any{
								"type":       "m",
								"expression": []any{"let", `    Source = #"Staging",`, `    Filtered = Table.SelectRows(Source, each [Amount] > 0)`, "in", "    Filtered"},
							},
						},
					},
				},
				map[string]any{
					"name":    "Date",
					"columns": []any{map[string]any{"name": "Year"}},
					"partitions": []any{
						map[string]any{
							"name":   "Date",
							"source": map[string]any{"type": "calculated", "expression": "CALENDARAUTO()"},
						},
					},
				},
			},
			"relationships": []any{
				map[string]any{"fromTable": "Sales", "fromColumn": "Date", "toTable": "Date", "toColumn": "Date"},
			},
			"expressions": []any{
				map[string]any{
					"name":       "Staging",
					"kind":       "m",
					"expression": []any{"let", `    Source = Sql.Database("srv", "sales")`, "in", "    Source"},
				},
			},
		},
	})
}

// SampleReport returns a report layout with global, page and visual filters
// over two pages.
func SampleReport() []byte {
	return mustJSON(map[string]any{
		"filters": mustString([]any{filterOn("Year Filter", "Date", "Year")}),
		"sections": []any{
			map[string]any{
				"displayName": "Overview",
				"filters":     mustString([]any{filterOn("Country Filter", "Region", "Country")}),
				"visualContainers": []any{
					map[string]any{
						"config": mustString(map[string]any{
							"name": "sales-by-region",
							"singleVisual": map[string]any{
								"visualType": "barChart",
								"prototypeQuery": map[string]any{
									"From": []any{map[string]any{"Name": "s", "Entity": "Sales"}},
									"Select": []any{
										map[string]any{"Column": sourceRef("s", "Region")},
										map[string]any{"Measure": sourceRef("s", "Total Sales")},
									},
								},
							},
						}),
						"filters": mustString([]any{filterOn("Region Filter", "Sales", "Region")}),
					},
					map[string]any{
						"config": mustString(map[string]any{
							"name": "margin-card",
							"singleVisual": map[string]any{
								"visualType": "card",
								"prototypeQuery": map[string]any{
									"From":   []any{map[string]any{"Name": "s", "Entity": "Sales"}},
									"Select": []any{map[string]any{"Measure": sourceRef("s", "Margin")}},
								},
							},
						}),
						"filters": "[]",
					},
				},
			},
			map[string]any{
				"displayName": "Details",
				"filters":     "[]",
				"visualContainers": []any{
					map[string]any{
						"config": mustString(map[string]any{
							"name": "detail-table",
							"singleVisual": map[string]any{
								"visualType":     "tableEx",
								"prototypeQuery": map[string]any{},
								"objects": map[string]any{
									"values": []any{map[string]any{
										"properties": map[string]any{
											"fontColor": map[string]any{
												"solid": map[string]any{
													"color": map[string]any{
														"expr": map[string]any{"Measure": entityRef("Sales", "Colour")},
													},
												},
											},
										},
									}},
								},
							},
						}),
					},
				},
			},
		},
	})
}

// WriteSamples writes the sample documents to dir as report.json,
// model.bim and dependencies.tsv and returns their paths in that order.
func WriteSamples(t testing.TB, dir string) (reportPath, modelPath, depsPath string) {
	t.Helper()
	reportPath = filepath.Join(dir, "report.json")
	modelPath = filepath.Join(dir, "model.bim")
	depsPath = filepath.Join(dir, "dependencies.tsv")
	for path, content := range map[string][]byte{
		reportPath: SampleReport(),
		modelPath:  SampleModel(),
		depsPath:   []byte(SampleDependencies),
	} {
		if err := os.WriteFile(path, content, 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return reportPath, modelPath, depsPath
}

func sourceRef(source, property string) map[string]any {
	return map[string]any{
		"Expression": map[string]any{"SourceRef": map[string]any{"Source": source}},
		"Property":   property,
	}
}

func entityRef(entity, property string) map[string]any {
	return map[string]any{
		"Expression": map[string]any{"SourceRef": map[string]any{"Entity": entity}},
		"Property":   property,
	}
}

func filterOn(name, entity, property string) map[string]any {
	return map[string]any{
		"name":       name,
		"expression": map[string]any{"Column": entityRef(entity, property)},
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func mustString(v any) string {
	return string(mustJSON(v))
}
