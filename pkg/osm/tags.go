package osm

import (
	"strings"

	"github.com/paulmach/osm"
)

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// Crowd levels by road class. Busy arterials score 1, collectors 0.4,
// everything else 0.
const (
	crowdHigh   = 1.0
	crowdMedium = 0.4
	crowdLow    = 0.0
)

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	if !carHighways[tags.Find("highway")] {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	return tags.Find("motor_vehicle") != "no"
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward, backward = true, true

	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		// Time-dependent, not routable.
		forward, backward = false, false
	}
	return forward, backward
}

func crowdLevel(highway string) float64 {
	switch highway {
	case "motorway", "trunk", "primary":
		return crowdHigh
	case "secondary", "tertiary":
		return crowdMedium
	}
	return crowdLow
}

// isBlindSpot flags ramps, where merging traffic is hard to see.
func isBlindSpot(highway string) bool {
	switch highway {
	case "motorway_link", "trunk_link", "primary_link":
		return true
	}
	return false
}

func safetyTip(highway, name, maxSpeed string) string {
	var tip string
	switch highway {
	case "motorway":
		tip = "Highway driving on " + name + ": Check mirrors, maintain 65+ mph"
	case "primary":
		tip = "Main road " + name + ": Be alert for intersections, 35-45 mph"
	case "residential":
		tip = "Residential street " + name + ": Watch for children, 25 mph max"
	default:
		if name != "" {
			tip = "Navigate carefully on " + name
		} else {
			tip = "Drive safely"
		}
	}
	if maxSpeed != "" {
		tip += " (Speed limit: " + maxSpeed + ")"
	}
	return tip
}

func wayName(tags osm.Tags) string {
	if name := tags.Find("name"); name != "" {
		return name
	}
	return tags.Find("ref")
}

// poiCategories are the tag values that make a named node a landmark.
var poiCategories = map[string]map[string]bool{
	"amenity": {
		"restaurant": true, "cafe": true, "hospital": true, "school": true, "bank": true,
		"fuel": true, "pharmacy": true, "police": true, "fire_station": true,
		"library": true, "post_office": true,
	},
	"shop":     {"supermarket": true, "convenience": true, "mall": true},
	"tourism":  {"attraction": true, "museum": true, "hotel": true},
	"leisure":  {"park": true, "sports_centre": true, "stadium": true},
	"building": {"university": true, "college": true},
}

// poiKeys fixes the lookup order so a node tagged with several categories
// always gets the same type.
var poiKeys = []string{"amenity", "shop", "tourism", "leisure", "building"}

const maxPOINameLen = 50

// poiType returns the display type of a landmark node, or "" if the node is
// not one.
func poiType(tags osm.Tags) string {
	name := tags.Find("name")
	if name == "" || len(name) > maxPOINameLen {
		return ""
	}
	if strings.Contains(name, "Drive") || strings.Contains(name, "Street") {
		return ""
	}
	for _, key := range poiKeys {
		value := tags.Find(key)
		if !poiCategories[key][value] {
			continue
		}
		label := titleCase(value)
		if key == "shop" {
			label += " Shop"
		}
		return label
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
