package handlers

import "net/http"

// Register mounts every resource on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	crud := func(path string, list, view, create, update, del http.HandlerFunc) {
		mux.HandleFunc("GET "+path, list)
		mux.HandleFunc("POST "+path, create)
		mux.HandleFunc("GET "+path+"/{id}", view)
		mux.HandleFunc("PUT "+path+"/{id}", update)
		mux.HandleFunc("DELETE "+path+"/{id}", del)
	}

	crud("/years", h.Years.List, h.Years.View, h.Years.Create, h.Years.Update, h.Years.Delete)
	crud("/contracts", h.Contracts.List, h.Contracts.View, h.Contracts.Create, h.Contracts.Update, h.Contracts.Delete)
	crud("/bills", h.BillList.List, h.Bills.View, h.Bills.Create, h.Bills.Update, h.Bills.Delete)
	crud("/end-user-costs", h.EndUserCosts.List, h.EndUserCosts.View, h.EndUserCosts.Create, h.EndUserCosts.Update, h.EndUserCosts.Delete)
	crud("/platform-costs", h.PlatformCosts.List, h.PlatformCosts.View, h.PlatformCosts.Create, h.PlatformCosts.Update, h.PlatformCosts.Delete)
	crud("/services", h.Services.List, h.Services.View, h.Services.Create, h.Services.Update, h.Services.Delete)
	crud("/divisions", h.Divisions.List, h.Divisions.View, h.Divisions.Create, h.Divisions.Update, h.Divisions.Delete)
	crud("/platforms", h.Platforms.List, h.Platforms.View, h.Platforms.Create, h.Platforms.Update, h.Platforms.Delete)
	crud("/systems", h.Systems.List, h.Systems.View, h.Systems.Create, h.Systems.Update, h.Systems.Delete)
	crud("/dependencies", h.Dependencies.List, h.Dependencies.View, h.Dependencies.Create, h.Dependencies.Update, h.Dependencies.Delete)

	// Service pools are created by the seed step and are read-only here.
	mux.HandleFunc("GET /service-pools", h.ServicePools.List)
	mux.HandleFunc("GET /service-pools/{id}", h.ServicePools.View)

	mux.HandleFunc("PUT /services/{id}/divisions", h.Links.Replace)
	mux.HandleFunc("POST /bills/recompute", h.BillList.Recompute)
	mux.HandleFunc("GET /bill", h.Report.DivisionBill)
}
