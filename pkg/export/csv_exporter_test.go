package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	data, err := exporter.Render(Dataset{
		Headers: []string{"employee_id", "net_salary"},
		Rows: []map[string]string{
			{"employee_id": "emp-1", "net_salary": "3400"},
			{"employee_id": "emp-2", "net_salary": "2800.50"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "employee_id,net_salary\nemp-1,3400\nemp-2,2800.50\n", string(data))
}

func TestCSVExporterMissingCellsStayEmpty(t *testing.T) {
	exporter := NewCSVExporter()

	data, err := exporter.Render(Dataset{
		Headers: []string{"a", "b"},
		Rows:    []map[string]string{{"a": "1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\n", string(data))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}
