// Package pricing 食券单价表与食堂推断
package pricing

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"ticketpos/internal/model"
)

var (
	ErrUnpricedRestaurant = errors.New("未配置单价的食堂")
	ErrInvalidTicketCount = errors.New("食券数量必须大于0")
	ErrAmountOverflow     = errors.New("应付金额超出范围")
)

// 单价表（积分/张）
var unitPrices = map[model.Restaurant]int64{
	model.RestaurantPrimary:   4800,
	model.RestaurantSecondary: 5000,
}

var ticketLabelPattern = regexp.MustCompile(`식권\s*(\d+)\s*개`)

// UnitPrice 返回食堂的单张食券价格
func UnitPrice(r model.Restaurant) (int64, error) {
	price, ok := unitPrices[r]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnpricedRestaurant, r)
	}
	return price, nil
}

// TotalDue 计算应付总额 = 单价 × 张数
func TotalDue(r model.Restaurant, ticketCount int) (int64, error) {
	if ticketCount <= 0 {
		return 0, ErrInvalidTicketCount
	}
	price, err := UnitPrice(r)
	if err != nil {
		return 0, err
	}
	if int64(ticketCount) > math.MaxInt64/price {
		return 0, ErrAmountOverflow
	}
	return price * int64(ticketCount), nil
}

// MenuLabel 兑换流水的菜单描述
func MenuLabel(ticketCount int) string {
	return fmt.Sprintf("식권 %d개", ticketCount)
}

// TicketCountFromLabel 从菜单描述中提取张数，匹配不到时按1张处理
func TicketCountFromLabel(label string) int {
	m := ticketLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 1
	}
	return n
}

// InferRestaurant 根据手工录入的菜单描述和金额推断食堂
//
// 只用于记账标注，推断失败归为 Other，不影响收款本身
func InferRestaurant(label string, amount int64) model.Restaurant {
	count := int64(TicketCountFromLabel(label))
	if count <= 0 || amount%count != 0 {
		return model.RestaurantOther
	}
	perTicket := amount / count
	for r, price := range unitPrices {
		if perTicket == price {
			return r
		}
	}
	return model.RestaurantOther
}
