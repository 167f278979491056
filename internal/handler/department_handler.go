package handler

import (
	"github.com/gin-gonic/gin"

	"stratflow-go/internal/model"
	"stratflow-go/internal/orgtree"
	"stratflow-go/internal/service"
)

// DepartmentHandler 负责组织架构、岗位和部门 OKR 的 API。
type DepartmentHandler struct {
	departmentService service.DepartmentService
}

// NewDepartmentHandler 创建一个新的 DepartmentHandler 实例。
func NewDepartmentHandler(departmentService service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departmentService: departmentService}
}

// ListFlat 以扁平列表返回部门，parent_id 指向父部门。
func (h *DepartmentHandler) ListFlat(c *gin.Context) {
	rows, err := h.departmentService.ListFlat(c.Param("entId"))
	if err != nil {
		respondError(c, "ListDepartments", err)
		return
	}
	success(c, rows)
}

// SaveFlat 用扁平列表整体替换组织架构。
func (h *DepartmentHandler) SaveFlat(c *gin.Context) {
	var rows []model.DepartmentRow
	if !bindJSON(c, "SaveDepartments", &rows) {
		return
	}
	if err := h.departmentService.SaveFlat(c.Param("entId"), rows); err != nil {
		respondError(c, "SaveDepartments", err)
		return
	}
	success(c, nil)
}

func (h *DepartmentHandler) Tree(c *gin.Context) {
	tree, err := h.departmentService.Tree(c.Param("entId"))
	if err != nil {
		respondError(c, "DepartmentTree", err)
		return
	}
	success(c, tree)
}

// Roles 返回岗位清单以及可供节点选择的岗位列表。
func (h *DepartmentHandler) Roles(c *gin.Context) {
	entName := c.Param("entId")
	inventory, err := h.departmentService.RoleInventory(entName)
	if err != nil {
		respondError(c, "RoleInventory", err)
		return
	}
	available, err := h.departmentService.AvailableRoles(entName)
	if err != nil {
		respondError(c, "RoleInventory", err)
		return
	}
	success(c, gin.H{"inventory": inventory, "available": available})
}

// AddUnitRequest 描述要新增的部门，ParentID 为空表示新增根部门。
type AddUnitRequest struct {
	ParentID string `json:"parentId"`
	Name     string `json:"name"`
}

func (h *DepartmentHandler) AddUnit(c *gin.Context) {
	var req AddUnitRequest
	if !bindJSON(c, "AddDepartment", &req) {
		return
	}
	dept, err := h.departmentService.AddDepartment(c.Param("entId"), req.ParentID, req.Name)
	if err != nil {
		respondError(c, "AddDepartment", err)
		return
	}
	success(c, dept)
}

func (h *DepartmentHandler) RemoveUnit(c *gin.Context) {
	if err := h.departmentService.RemoveDepartment(c.Param("entId"), c.Param("deptId")); err != nil {
		respondError(c, "RemoveDepartment", err)
		return
	}
	success(c, nil)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *DepartmentHandler) AddRole(c *gin.Context) {
	var req roleRequest
	if !bindJSON(c, "AddRole", &req) {
		return
	}
	if err := h.departmentService.AddRole(c.Param("entId"), c.Param("deptId"), req.Role); err != nil {
		respondError(c, "AddRole", err)
		return
	}
	success(c, nil)
}

func (h *DepartmentHandler) RemoveRole(c *gin.Context) {
	if err := h.departmentService.RemoveRole(c.Param("entId"), c.Param("deptId"), c.Param("role")); err != nil {
		respondError(c, "RemoveRole", err)
		return
	}
	success(c, nil)
}

// AddOKRRequest 指定新 OKR 所属的年度和季度。
type AddOKRRequest struct {
	Year    int    `json:"year" binding:"required"`
	Quarter string `json:"quarter" binding:"required"`
}

func (h *DepartmentHandler) AddOKR(c *gin.Context) {
	var req AddOKRRequest
	if !bindJSON(c, "AddDepartmentOKR", &req) {
		return
	}
	okr, err := h.departmentService.AddOKR(c.Param("entId"), c.Param("deptId"), req.Year, req.Quarter)
	if err != nil {
		respondError(c, "AddDepartmentOKR", err)
		return
	}
	success(c, okr)
}

func (h *DepartmentHandler) UpdateOKR(c *gin.Context) {
	var patch orgtree.OKRPatch
	if !bindJSON(c, "UpdateDepartmentOKR", &patch) {
		return
	}
	okr, err := h.departmentService.UpdateOKR(c.Param("entId"), c.Param("deptId"), c.Param("okrId"), patch)
	if err != nil {
		respondError(c, "UpdateDepartmentOKR", err)
		return
	}
	success(c, okr)
}
