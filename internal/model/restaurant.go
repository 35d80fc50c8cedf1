package model

import (
	"database/sql/driver"
	"fmt"
)

// Restaurant 食堂标识，封闭枚举
// 全链路只传递枚举值，只在存储和展示边界转换为字符串
type Restaurant uint8

const (
	RestaurantOther Restaurant = iota
	RestaurantPrimary
	RestaurantSecondary
)

const (
	restaurantCodeOther     = "other"
	restaurantCodePrimary   = "primary"
	restaurantCodeSecondary = "secondary"
)

// Code 存储与 JWT 中使用的编码
func (r Restaurant) Code() string {
	switch r {
	case RestaurantPrimary:
		return restaurantCodePrimary
	case RestaurantSecondary:
		return restaurantCodeSecondary
	default:
		return restaurantCodeOther
	}
}

// DisplayName 终端上展示的食堂名称
func (r Restaurant) DisplayName() string {
	switch r {
	case RestaurantPrimary:
		return "아질리아"
	case RestaurantSecondary:
		return "피오니"
	default:
		return "기타"
	}
}

func (r Restaurant) String() string {
	return r.Code()
}

// ParseRestaurant 将编码解析为枚举，未知编码返回错误
func ParseRestaurant(code string) (Restaurant, error) {
	switch code {
	case restaurantCodePrimary:
		return RestaurantPrimary, nil
	case restaurantCodeSecondary:
		return RestaurantSecondary, nil
	case restaurantCodeOther:
		return RestaurantOther, nil
	default:
		return RestaurantOther, fmt.Errorf("未知的食堂编码: %q", code)
	}
}

func (r Restaurant) MarshalText() ([]byte, error) {
	return []byte(r.Code()), nil
}

func (r *Restaurant) UnmarshalText(text []byte) error {
	parsed, err := ParseRestaurant(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value 实现 driver.Valuer
func (r Restaurant) Value() (driver.Value, error) {
	return r.Code(), nil
}

// Scan 实现 sql.Scanner
func (r *Restaurant) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case nil:
		*r = RestaurantOther
		return nil
	default:
		return fmt.Errorf("无法将 %T 转换为 Restaurant", src)
	}
}
