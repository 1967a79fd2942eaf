package main

import (
	"fmt"
	"log"
	"os"

	"github.com/benj01/geoloader/pkg/geoloader"
)

func main() {
	// Read the component set; file access stays outside the library
	shp, err := os.ReadFile("parcels.shp")
	if err != nil {
		log.Fatal(err)
	}
	shx, _ := os.ReadFile("parcels.shx")
	dbf, _ := os.ReadFile("parcels.dbf")
	prj, _ := os.ReadFile("parcels.prj")

	// Parse
	loader := geoloader.NewLoader()
	dataset, err := loader.ParseShapefile(geoloader.ShapefileInput{
		SHP: shp, SHX: shx, DBF: dbf, PRJ: prj,
	})
	if err != nil {
		log.Fatal(err)
	}

	// Print dataset info
	fmt.Printf("Features: %d\n", dataset.FeatureCount())
	fmt.Printf("System: %s (confidence %.2f, %s)\n",
		dataset.Detection().System,
		dataset.Detection().Confidence,
		dataset.Detection().Method)

	bounds := dataset.Bounds()
	fmt.Printf("Bounds: [%.2f,%.2f] to [%.2f,%.2f]\n",
		bounds.MinX, bounds.MinY,
		bounds.MaxX, bounds.MaxY)
}
