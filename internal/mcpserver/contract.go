package mcpserver

import (
	"github.com/starford/layerline/internal/index"
	"github.com/starford/layerline/internal/timeline"
)

func headerOf(r index.LayerRow) string {
	return timeline.HeaderDateRange(&r.Layer)
}

// LayerFormatContract describes the YAML layer definition format that
// LLM consumers should follow when reading or proposing layers.
const LayerFormatContract = `# layerline Layer Format Contract

Each layer is one YAML file named ` + "`<id>.yaml`" + ` in the catalogue directory.

## Structure

` + "```" + `yaml
id: MODIS_Terra_NDVI_8Day          # REQUIRED - letters, digits, _ . -
title: NDVI (8-Day)                # OPTIONAL - defaults to id
subtitle: Terra / MODIS            # OPTIONAL
period: daily                      # REQUIRED - subdaily|daily|monthly|yearly
start_date: 2000-01-01             # OPTIONAL - first data date
end_date: 2000-01-31               # OPTIONAL - omit for ongoing layers
inactive: false                    # OPTIONAL - true once the layer stopped updating
visible: true                      # OPTIONAL - drawn in colour when true
date_ranges:                       # OPTIONAL - ordered by start_date
  - start_date: 2000-01-01
    end_date: 2000-01-31
    interval: 8                    # REQUIRED - period units between data points
` + "```" + `

## Rules

1. Dates are ISO-8601: ` + "`2006-01-02`" + `, ` + "`2006-01-02T15:04:05Z`" + ` or
   ` + "`2006-01-02T15:04:05`" + ` (read as UTC).
2. Every end date is on or after its start date; every interval is at least 1.
3. ` + "`minutes`, `days`, `months`, `years`" + ` are accepted for period as well.
   Anything finer than daily is stepped in minutes.
4. A layer with neither date ranges nor a start date has no coverage.
5. For the last range of an active layer the end date is ignored and the
   coverage runs up to the current time.

## Coverage

The ` + "`layer_coverage`" + ` tool returns, per layer, a draw mode
(` + "`container`" + ` for one line per range, ` + "`multi`" + ` for one line per
interval), a header such as ` + "`2020 May 01 to Present`" + ` and the lines that
fall inside the requested window, each with a label like
` + "`2000-01-01 to 2000-01-09`" + `.
`
