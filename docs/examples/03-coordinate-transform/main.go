package main

import (
	"fmt"
	"log"
	"os"

	"github.com/benj01/geoloader/pkg/geoloader"
)

func main() {
	shp, err := os.ReadFile("buildings.shp")
	if err != nil {
		log.Fatal(err)
	}
	shx, _ := os.ReadFile("buildings.shx")
	dbf, _ := os.ReadFile("buildings.dbf")

	// Parse and transform to Web Mercator in one step
	loader := geoloader.NewLoader()
	dataset, err := loader.ParseShapefileWithOptions(
		geoloader.ShapefileInput{SHP: shp, SHX: shx, DBF: dbf},
		geoloader.ParseOptions{TargetSystem: geoloader.SystemWebMercator},
	)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Now in: %s (EPSG:%d)\n",
		dataset.CoordinateSystem(),
		dataset.CoordinateSystem().EPSG())

	// Single points work too, in either direction
	lon, lat, err := loader.TransformPoint(
		2600000, 1200000,
		geoloader.SystemSwissLV95, geoloader.SystemWGS84,
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Bern: %.6f, %.6f\n", lon, lat)
}
