package main

import (
	"fmt"
	"log"
	"os"

	"github.com/benj01/geoloader/pkg/geoloader"
)

func main() {
	// Parse a DXF site plan
	buf, err := os.ReadFile("site-plan.dxf")
	if err != nil {
		log.Fatal(err)
	}

	loader := geoloader.NewLoader()
	dataset, err := loader.ParseDXF(buf)
	if err != nil {
		log.Fatal(err)
	}

	// Define viewport (one block around Bern main station, LV95)
	viewport := geoloader.Bounds{
		MinX: 2599800, MaxX: 2600200,
		MinY: 1199600, MaxY: 1200000,
	}

	// Query R-tree index for visible features (O(log n))
	features := dataset.FeaturesInBounds(viewport)

	fmt.Printf("Visible features: %d\n", len(features))

	for _, feature := range features {
		fmt.Printf("  layer %s: %s\n",
			feature.Layer(),
			feature.Geometry().Type)
	}
}
