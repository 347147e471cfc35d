package dhis2

import (
	"net/url"
	"strconv"
)

const (
	CollectionOrganisationUnits = "organisationUnits"
	CollectionOptionSets        = "optionSets"
	CollectionTrackedEntities   = "trackedEntityInstances"

	organisationUnitFields = "id,code,created,lastUpdated,name,shortName,description,openingDate,level,parent[id],translations"
	optionSetFields        = "id,code,created,lastUpdated,name,description,version,options[id,code,name,translations],translations"
	trackedEntityFields    = "trackedEntityInstance,orgUnit,created,lastUpdated,attributes[attribute,code,displayName,value],enrollments[enrollment,events[event,dataValues[dataElement,value]]]"
)

// Filter narrows a collection query. Zero values are ignored.
type Filter struct {
	Name     string
	OrgUnit  string
	PageSize int
	MaxPages int
}

func (f Filter) apply(q Query) Query {
	if f.Name != "" {
		q.Filters = append(q.Filters, "name:ilike:"+f.Name)
	}
	if f.PageSize > 0 {
		q.PageSize = f.PageSize
	}
	if f.MaxPages > 0 {
		q.MaxPages = f.MaxPages
	}
	return q
}

// OrganisationUnitsQuery lists organisation units down to maxLevel, ordered
// by level so parents precede their children.
func OrganisationUnitsQuery(maxLevel int, f Filter) Query {
	q := Query{
		Collection: CollectionOrganisationUnits,
		Fields:     organisationUnitFields,
		Order:      "level",
	}
	if maxLevel > 0 {
		q.Filters = append(q.Filters, "level:le:"+strconv.Itoa(maxLevel))
	}
	return f.apply(q)
}

func OptionSetsQuery(f Filter) Query {
	return f.apply(Query{
		Collection: CollectionOptionSets,
		Fields:     optionSetFields,
	})
}

// TrackedEntitiesQuery lists the tracked entities enrolled in program. When
// the filter names no org unit, every org unit the caller can access is used.
func TrackedEntitiesQuery(program string, f Filter) Query {
	params := url.Values{}
	params.Set("program", program)
	params.Set("totalPages", "true")
	if f.OrgUnit != "" {
		params.Set("ou", f.OrgUnit)
		params.Set("ouMode", "DESCENDANTS")
	} else {
		params.Set("ouMode", "ACCESSIBLE")
	}
	q := Query{
		Collection: CollectionTrackedEntities,
		Fields:     trackedEntityFields,
		Params:     params,
	}
	f.Name = ""
	return f.apply(q)
}
